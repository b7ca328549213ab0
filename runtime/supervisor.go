package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vidpipe/vidpipe/component"
	vperrors "github.com/vidpipe/vidpipe/errors"
	"github.com/vidpipe/vidpipe/frame"
	"github.com/vidpipe/vidpipe/graph"
	"github.com/vidpipe/vidpipe/logger"
	"github.com/vidpipe/vidpipe/observability"
	"github.com/vidpipe/vidpipe/queue"
	"github.com/vidpipe/vidpipe/registry"
)

// Supervisor is the central runtime of spec.md §4.R: given a compiled
// Graph and the Registry it was compiled against, it wires bounded
// channels onto every edge, spawns one worker per node, manages timed
// segments, and drives startup/shutdown.
type Supervisor struct {
	g       *graph.Graph
	reg     *registry.Registry
	cfg     Config
	log     *logger.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	report   Report
	degraded bool
	failed   bool
}

// SupervisorOption configures optional Supervisor behavior beyond the
// required graph/registry/config triple.
type SupervisorOption func(*Supervisor)

// WithMetrics attaches otel metric instruments so every worker's
// transform invocation records duration and status, in addition to the
// span every invocation always gets (see worker.traced). Without this
// option, spans are still emitted (against whatever tracer provider is
// globally configured, a no-op one by default) but no metrics are recorded.
func WithMetrics(m *observability.Metrics) SupervisorOption {
	return func(s *Supervisor) { s.metrics = m }
}

// NewSupervisor prepares a Supervisor for g, compiled against reg.
func NewSupervisor(g *graph.Graph, reg *registry.Registry, cfg Config, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		g:   g,
		reg: reg,
		cfg: cfg,
		log: logger.NewDefault("vidpipe-runtime"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the graph to completion: it blocks until every worker has
// reached Stopped, ctx is cancelled and the grace period elapses, or a
// fatal startup error aborts before any worker is spawned. events, if
// non-nil, receives every structured Event as it happens; Run does not
// close events.
func (s *Supervisor) Run(ctx context.Context, events chan<- Event) (Report, error) {
	channels := make(map[graph.EEdgeID]*queue.Channel[frame.Frame], len(s.g.Edges))
	for id, e := range s.g.Edges {
		channels[id] = queue.New[frame.Frame](e.Capacity)
	}

	segClock := newSegmentClock(s.g.Segments)
	segReady, segDone := s.buildSegmentGates()

	workers := make(map[graph.ENodeID]*worker, len(s.g.Nodes))
	for id, n := range s.g.Nodes {
		entry, ok := s.reg.Get(n.Name)
		if !ok {
			return s.fail(fmt.Sprintf("node %q references unregistered function %q", id, n.Name)), nil
		}
		var seg *graph.Segment
		if n.Segment != "" {
			seg = s.g.Segments[n.Segment]
		}
		w := newWorker(n, entry, seg, s.cfg, events, s.log, segClock)
		w.metrics = s.metrics
		if n.Segment != "" {
			w.ready = segReady[n.Segment]
		}
		for _, eid := range n.Inputs {
			w.inputs = append(w.inputs, channels[eid])
		}
		for _, eid := range n.Outputs {
			w.outputs = append(w.outputs, channels[eid])
		}
		workers[id] = w
	}

	// Startup preflight: every Source must open successfully before any
	// worker is spawned (spec.md §4.R "fatal-at-startup"). A failure here
	// means the run never started.
	var opened []registry.FrameIterator
	for _, id := range s.g.EntrySources {
		w := workers[id]
		src, ok := w.entry.Transform.(registry.Source)
		if !ok {
			s.closeAll(opened)
			return s.fail(fmt.Sprintf("node %q is not a Source", id)), nil
		}
		iter, err := src.Open(ctx, w.node.Params)
		if err != nil {
			s.closeAll(opened)
			rerr := vperrors.NewRuntimeError(vperrors.RuntimeSourceStartup, string(id), 0, err.Error())
			return s.fail(rerr.Error()), rerr
		}
		w.sourceIter = iter
		opened = append(opened, iter)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()
	defer segClock.stopAll()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		w := w
		go func() {
			w.run(runCtx, &wg)
			if w.node.Segment != "" {
				segDone[w.node.Segment].Done()
			}
		}()
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
		return s.finish(workers, normalOrCancelled(ctx)), nil
	case <-ctx.Done():
		cancel() // wake every worker at its next channel/timer operation
		s.mu.Lock()
		s.degraded = true
		s.mu.Unlock()
		grace := time.Duration(s.cfg.ShutdownGraceSeconds * float64(time.Second))
		select {
		case <-allDone:
			s.mu.Lock()
			s.degraded = false
			s.mu.Unlock()
			return s.finish(workers, StatusCancelled), nil
		case <-time.After(grace):
			return s.finish(workers, StatusCancelled), fmt.Errorf("runtime: workers did not stop within the shutdown grace period")
		}
	}
}

// buildSegmentGates prepares, for every segment, a channel that closes once
// that segment may start and a WaitGroup that reaches zero once every one
// of its member workers has stopped. A segment with no Follows dependency
// is ready immediately; one with dependencies gets a goroutine that waits
// on every followed segment's WaitGroup before closing its own ready
// channel — the runtime half of graph.Segment.Follows (spec.md §4.R's
// "the supervisor starts the next segment's sources only after the
// previous has fully drained").
func (s *Supervisor) buildSegmentGates() (map[graph.SegmentID]<-chan struct{}, map[graph.SegmentID]*sync.WaitGroup) {
	memberCount := make(map[graph.SegmentID]int, len(s.g.Segments))
	for _, n := range s.g.Nodes {
		if n.Segment != "" {
			memberCount[n.Segment]++
		}
	}
	segDone := make(map[graph.SegmentID]*sync.WaitGroup, len(memberCount))
	for id, count := range memberCount {
		wg := &sync.WaitGroup{}
		wg.Add(count)
		segDone[id] = wg
	}

	segReady := make(map[graph.SegmentID]<-chan struct{}, len(s.g.Segments))
	for id, seg := range s.g.Segments {
		ready := make(chan struct{})
		segReady[id] = ready
		if len(seg.Follows) == 0 {
			close(ready)
			continue
		}
		seg, ready := seg, ready
		go func() {
			for dep := range seg.Follows {
				if wg, ok := segDone[dep]; ok {
					wg.Wait()
				}
			}
			close(ready)
		}()
	}
	return segReady, segDone
}

func normalOrCancelled(ctx context.Context) Status {
	if ctx.Err() != nil {
		return StatusCancelled
	}
	return StatusNormal
}

func (s *Supervisor) finish(workers map[graph.ENodeID]*worker, status Status) Report {
	faults := make(map[graph.ENodeID]int, len(workers))
	anyFatal := false
	for id, w := range workers {
		w.mu.Lock()
		count := w.faultCount
		// run moves a Faulted worker on to Stopped before it returns, so a
		// fault count at the limit is what marks a worker that went fatal.
		fatal := w.state == stateFaulted ||
			(s.cfg.ConsecutiveFailureLimit > 0 && count >= s.cfg.ConsecutiveFailureLimit)
		w.mu.Unlock()
		if count > 0 {
			faults[id] = count
		}
		if fatal {
			anyFatal = true
		}
	}
	if anyFatal && status == StatusNormal {
		status = StatusFailed
	}

	reason := status.String()
	s.mu.Lock()
	s.report = Report{Status: status, Reason: reason, NodeFaults: faults}
	s.failed = status == StatusFailed
	s.mu.Unlock()
	return s.report
}

func (s *Supervisor) fail(reason string) Report {
	s.mu.Lock()
	s.failed = true
	s.report = Report{Status: StatusFailed, Reason: reason, NodeFaults: map[graph.ENodeID]int{}}
	s.mu.Unlock()
	return s.report
}

func (s *Supervisor) closeAll(iters []registry.FrameIterator) {
	for _, it := range iters {
		it.Close()
	}
}

// Name identifies this Supervisor as a component.Component.
func (s *Supervisor) Name() string { return "vidpipe-runtime" }

// Start launches Run in the background so a host's component.Registry can
// manage vidpipe's lifecycle alongside its other infrastructure.
func (s *Supervisor) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if _, err := s.Run(runCtx, nil); err != nil {
			s.log.Error("runtime exited with error", map[string]interface{}{"error": err.Error()})
		}
	}()
	return nil
}

// Stop cancels the run and waits up to the configured shutdown grace
// period for it to finish.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	if done == nil {
		return nil
	}

	grace := time.Duration(s.cfg.ShutdownGraceSeconds * float64(time.Second))
	select {
	case <-done:
		return nil
	case <-time.After(grace):
		return fmt.Errorf("runtime: shutdown grace period exceeded")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports Unhealthy once the run has failed, Degraded while a
// cancellation is in flight but workers have not yet all stopped, and
// Healthy otherwise.
func (s *Supervisor) Health(ctx context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := component.StatusHealthy
	msg := ""
	if s.failed {
		status = component.StatusUnhealthy
		msg = s.report.Reason
	} else if s.degraded {
		status = component.StatusDegraded
		msg = "shutdown in progress"
	}
	return component.Health{Name: s.Name(), Status: status, Message: msg}
}
