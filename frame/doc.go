// Package frame defines the opaque value that flows through a vidpipe
// execution graph.
//
// The core treats a frame's pixel payload as opaque bytes; it never
// interprets color space, resolution, or encoding. What the core does own
// is the frame's lifecycle contract: a frame's Data is shared and immutable
// once it has been pushed onto a queue.Channel, and fanning it out to
// multiple consumers must be cheap. Clone gives each consumer its own
// metadata while keeping the pixel buffer's backing array shared; Privatize
// is the opt-in escape hatch for a transform that needs to mutate pixels.
package frame
