package graph

import "github.com/vidpipe/vidpipe/registry"

// ENodeID, EEdgeID, and SegmentID are opaque entity ids, assigned once at
// compile time and never reused within a program (spec.md invariant 8).
type ENodeID string
type EEdgeID string
type SegmentID string

// ENode is one execution-graph node: a single invocation of a registered
// transform, with its resolved parameters and the edges it reads from and
// writes to.
type ENode struct {
	ID        ENodeID
	Name      string // the registered function name this node invokes
	Kind      registry.Kind
	Params    registry.Params
	Inputs  []EEdgeID
	Outputs []EEdgeID
	Segment SegmentID // empty if this node is not time-bounded
}

// EEdge is a bounded edge connecting one producer node to one consumer
// node. Capacity defaults per spec.md §4.C (10 for "->", 20 for "~>"),
// overridable via a `buffer` parameter on either endpoint.
type EEdge struct {
	ID       EEdgeID
	Producer ENodeID
	Consumer ENodeID
	Capacity int
}

// Segment groups the nodes bound to one `@` timing annotation. A node
// belongs to its innermost enclosing Segment only (spec.md invariant 7).
type Segment struct {
	ID              SegmentID
	DeadlineSeconds float64
	Members         map[ENodeID]bool
	// Follows lists the segments that must fully drain before this
	// segment's members may begin running, recorded when a Seq chains two
	// Timed groups with no data edge between them (e.g. two complete
	// sub-pipelines joined by `A @1s -> B @1s`). A segment with no Follows
	// entries starts as soon as the run begins.
	Follows map[SegmentID]bool
}

// Graph is the full lowered program: nodes, edges, segments, and the
// entry/terminal sets the runtime uses to drive startup and shutdown.
type Graph struct {
	Nodes    map[ENodeID]*ENode
	Edges    map[EEdgeID]*EEdge
	Segments map[SegmentID]*Segment

	// EntrySources are every Source node in the graph. The runtime opens
	// all of them during its startup preflight regardless of segment; a
	// source whose Segment has Follows dependencies does not begin
	// producing until those dependencies drain (see runtime.Supervisor).
	EntrySources []ENodeID
	// TerminalSinks are every Sink node in the graph.
	TerminalSinks []ENodeID
}

// OutputsOf returns the edge ids produced by a node, defaulting to an
// empty slice for an unknown node id.
func (g *Graph) OutputsOf(id ENodeID) []EEdgeID {
	if n, ok := g.Nodes[id]; ok {
		return n.Outputs
	}
	return nil
}

// InputsOf returns the edge ids consumed by a node, defaulting to an
// empty slice for an unknown node id.
func (g *Graph) InputsOf(id ENodeID) []EEdgeID {
	if n, ok := g.Nodes[id]; ok {
		return n.Inputs
	}
	return nil
}
