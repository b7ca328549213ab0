package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	vperrors "github.com/vidpipe/vidpipe/errors"
	"github.com/vidpipe/vidpipe/frame"
	"github.com/vidpipe/vidpipe/graph"
	"github.com/vidpipe/vidpipe/logger"
	"github.com/vidpipe/vidpipe/observability"
	"github.com/vidpipe/vidpipe/queue"
	"github.com/vidpipe/vidpipe/registry"
	"github.com/vidpipe/vidpipe/resilience"
)

// tracerName names the span source for every node invocation, so a host
// that configured observability.InitTracer can tell vidpipe's spans apart
// from its own.
const tracerName = "github.com/vidpipe/vidpipe/runtime"

// workerState is the worker state machine of spec.md §4.R.
type workerState int

const (
	stateStarting workerState = iota
	stateRunning
	stateDraining
	stateStopped
	stateFaulted
)

// pollInterval bounds how long a multi-input worker waits on one input
// before round-robining to the next, per spec.md §4.R's "fair round-robin
// over ready inputs".
const pollInterval = 15 * time.Millisecond

// worker runs one graph.ENode for the lifetime of a Supervisor.Run call.
type worker struct {
	node    *graph.ENode
	entry   registry.Entry
	inputs  []*queue.Channel[frame.Frame]
	outputs []*queue.Channel[frame.Frame]
	segment *graph.Segment

	cfg      Config
	events   chan<- Event
	log      *logger.Logger
	segClock *segmentClock
	breaker  *resilience.CircuitBreaker

	// metrics records per-invocation duration/error counts via otel, when
	// the host configured one (see WithMetrics); nil skips recording.
	metrics *observability.Metrics

	// ready gates Starting -> Running for a node whose segment must wait
	// for one or more predecessor segments to fully drain (graph.Segment's
	// Follows). nil for a node with no such dependency, which may start
	// immediately.
	ready <-chan struct{}

	mu         sync.Mutex
	state      workerState
	faultCount int

	// sourceIter is set by Supervisor.Run before any worker is spawned, for
	// Source nodes only: every source is opened during a startup preflight
	// (spec.md §4.R "fatal-at-startup"), so runSource never calls Open
	// itself — a failed Open aborts the whole run before workers exist.
	sourceIter registry.FrameIterator
}

func newWorker(node *graph.ENode, entry registry.Entry, segment *graph.Segment, cfg Config, events chan<- Event, log *logger.Logger, segClock *segmentClock) *worker {
	return &worker{
		node:     node,
		entry:    entry,
		segment:  segment,
		cfg:      cfg,
		events:   events,
		log:      log.WithComponent(string(node.ID)),
		segClock: segClock,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        node.Name,
			MaxFailures: cfg.ConsecutiveFailureLimit,
			// No half-open recovery leg: spec.md's "isolate and continue until
			// fatal" has nothing to retry against once a worker goes fatal.
			Timeout: 365 * 24 * time.Hour,
		}),
	}
}

func (w *worker) setState(s workerState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *worker) State() workerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *worker) emit(kind EventKind, detail string) {
	if w.events == nil {
		return
	}
	w.events <- Event{Timestamp: time.Now(), NodeID: w.node.ID, Kind: kind, Detail: detail}
}

// run drives the node's loop to completion: Starting -> Running -> Draining
// -> Stopped, with Faulted reachable from Running on a fatal transform
// error.
func (w *worker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	if w.ready != nil {
		select {
		case <-w.ready:
		case <-ctx.Done():
			w.setState(stateStopped)
			w.emit(EventWorkerStopped, "cancelled before its segment became active")
			return
		}
	}

	w.setState(stateRunning)
	w.emit(EventWorkerStarted, "")
	if w.segment != nil {
		w.segClock.arm(w.segment, func() { w.onSegmentDeadline() })
	}

	switch w.node.Kind {
	case registry.SourceKind:
		w.runSource(ctx)
	case registry.ProcessorKind:
		w.runProcessor(ctx)
	case registry.SinkKind:
		w.runSink(ctx)
	}

	w.setState(stateStopped)
	w.emit(EventWorkerStopped, "")
}

func (w *worker) onSegmentDeadline() {
	w.emit(EventSegmentDeadline, "")
	if w.node.Kind == registry.SourceKind {
		w.setState(stateDraining)
		w.closeOutputs()
	}
}

func (w *worker) closeOutputs() {
	for _, o := range w.outputs {
		o.Close()
	}
}

// pushAll broadcasts fr to every output edge, giving each its own Clone so
// no two consumers share mutable metadata (spec.md §4.R fan-out). It
// returns false if ctx was cancelled or the node's segment deadline fired
// mid-broadcast, in which case the caller should stop producing.
func (w *worker) pushAll(ctx context.Context, fr frame.Frame, segFired <-chan struct{}) bool {
	for _, o := range w.outputs {
		if err := o.Push(ctx, fr.Clone()); err != nil {
			return false
		}
	}
	select {
	case <-segFired:
		w.closeOutputs()
		return false
	default:
		return true
	}
}

// recordFault logs a transform failure and reports whether the node has now
// reached its consecutive-failure limit and must become fatal.
func (w *worker) recordFault(err error) bool {
	w.mu.Lock()
	w.faultCount++
	count := w.faultCount
	w.mu.Unlock()

	w.log.Error("transform fault", map[string]interface{}{
		"node_id":            string(w.node.ID),
		"error":              err.Error(),
		"consecutive_faults": count,
	})
	w.emit(EventFault, err.Error())
	if w.metrics != nil {
		w.metrics.RecordError(context.Background(), "transform_fault", w.node.Name)
	}
	_ = w.breaker.Execute(func() error { return err })

	if w.breaker.State() == resilience.StateOpen {
		w.setState(stateFaulted)
		w.emit(EventWorkerFaulted, "consecutive failure limit reached")
		return true
	}
	return false
}

// traced wraps one transform invocation in an otel span named "vidpipe.node"
// (tagged with the node's id/name) and, when metrics are configured, records
// its duration and status — the same wrapper for both Processor.Process and
// Sink.Consume, differing only in what fn actually calls.
func (w *worker) traced(ctx context.Context, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "vidpipe.node")
	observability.SetSpanAttribute(ctx, "vidpipe.node_id", string(w.node.ID))
	observability.SetSpanAttribute(ctx, "vidpipe.node_name", w.node.Name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		observability.SetSpanError(ctx, err)
		status = "error"
	}
	if w.metrics != nil {
		w.metrics.RecordOperation(ctx, "vidpipe", w.node.Name, status, time.Since(start))
	}
	return err
}

func (w *worker) recordSuccess() {
	w.mu.Lock()
	w.faultCount = 0
	w.mu.Unlock()
	_ = w.breaker.Execute(func() error { return nil })
}

func (w *worker) runSource(ctx context.Context) {
	defer w.closeOutputs()

	iter := w.sourceIter
	if iter == nil {
		w.emit(EventFault, "source worker started without a pre-opened iterator")
		return
	}
	defer iter.Close()

	interval := time.Duration(w.cfg.DefaultSourceIntervalSeconds * float64(time.Second))
	segFired := w.segClock.firedCh(w.node.Segment)

	for {
		if cancelledOrFired(ctx, segFired) {
			return
		}

		fr, ok, err := iter.Next(ctx)
		if err != nil {
			if w.recordFault(vperrors.NewRuntimeError(vperrors.RuntimeTransformFault, string(w.node.ID), fr.Seq, err.Error())) {
				return
			}
			continue
		}
		if !ok {
			return
		}
		w.recordSuccess()

		if !w.pushAll(ctx, fr, segFired) {
			return
		}

		if interval > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			case <-segFired:
				timer.Stop()
				return
			}
		}
	}
}

func cancelledOrFired(ctx context.Context, segFired <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-segFired:
		return true
	default:
		return false
	}
}

// popMerged reads the next frame from whichever input is ready first, in a
// fair round-robin, returning (frame, true, nil); once every input has
// reported end-of-stream it returns (zero, false, nil).
func (w *worker) popMerged(ctx context.Context, segFired <-chan struct{}) (frame.Frame, bool, error) {
	if len(w.inputs) == 1 {
		return w.inputs[0].Pop(ctx)
	}

	active := make([]bool, len(w.inputs))
	for i := range active {
		active[i] = true
	}
	remaining := len(w.inputs)
	idx := 0

	for remaining > 0 {
		if cancelledOrFired(ctx, segFired) {
			var zero frame.Frame
			return zero, false, ctx.Err()
		}
		idx = (idx + 1) % len(w.inputs)
		if !active[idx] {
			continue
		}
		fr, ok, err := w.inputs[idx].TryPop(pollInterval)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			var zero frame.Frame
			return zero, false, err
		}
		if !ok {
			active[idx] = false
			remaining--
			continue
		}
		return fr, true, nil
	}
	var zero frame.Frame
	return zero, false, nil
}

func (w *worker) runProcessor(ctx context.Context) {
	defer w.closeOutputs()

	proc, ok := w.entry.Transform.(registry.Processor)
	if !ok {
		w.emit(EventFault, "registered transform does not implement Processor")
		return
	}
	segFired := w.segClock.firedCh(w.node.Segment)

	for {
		fr, ok, err := w.popMerged(ctx, segFired)
		if err != nil {
			return
		}
		if !ok {
			return
		}

		var out frame.Frame
		perr := w.traced(ctx, func(ctx context.Context) error {
			var err error
			out, err = proc.Process(ctx, fr, w.node.Params)
			return err
		})
		if perr != nil {
			if w.recordFault(vperrors.NewRuntimeError(vperrors.RuntimeTransformFault, string(w.node.ID), fr.Seq, perr.Error())) {
				return
			}
			continue
		}
		w.recordSuccess()

		if !w.pushAll(ctx, out, segFired) {
			return
		}
	}
}

func (w *worker) runSink(ctx context.Context) {
	sink, ok := w.entry.Transform.(registry.Sink)
	if !ok {
		w.emit(EventFault, "registered transform does not implement Sink")
		return
	}
	segFired := w.segClock.firedCh(w.node.Segment)

	for {
		fr, ok, err := w.popMerged(ctx, segFired)
		if err != nil {
			return
		}
		if !ok {
			return
		}

		cerr := w.traced(ctx, func(ctx context.Context) error {
			return sink.Consume(ctx, fr, w.node.Params)
		})
		if cerr != nil {
			if w.recordFault(vperrors.NewRuntimeError(vperrors.RuntimeTransformFault, string(w.node.ID), fr.Seq, cerr.Error())) {
				return
			}
			continue
		}
		w.recordSuccess()
	}
}
