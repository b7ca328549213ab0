package runtime

import (
	"sync"
	"time"

	"github.com/vidpipe/vidpipe/graph"
)

// segmentClock lazily arms one deadline timer per graph.Segment: the timer
// starts counting when the first of that segment's member workers starts
// running, rather than at supervisor startup. A worker starts running only
// after its segment's ready gate (Supervisor.buildSegmentGates) has opened,
// so in a chain of sequential Timed segments (`A @3s -> B @5s`) each
// segment gets its full duration starting once every segment it follows
// has fully drained.
type segmentClock struct {
	mu      sync.Mutex
	once    map[graph.SegmentID]*sync.Once
	fired   map[graph.SegmentID]chan struct{}
	stopped map[graph.SegmentID]func() bool
}

func newSegmentClock(segments map[graph.SegmentID]*graph.Segment) *segmentClock {
	sc := &segmentClock{
		once:    make(map[graph.SegmentID]*sync.Once, len(segments)),
		fired:   make(map[graph.SegmentID]chan struct{}, len(segments)),
		stopped: make(map[graph.SegmentID]func() bool),
	}
	for id := range segments {
		sc.once[id] = &sync.Once{}
		sc.fired[id] = make(chan struct{})
	}
	return sc
}

// firedCh returns the channel closed when a segment's deadline elapses. A
// node with no segment gets a channel that never closes.
func (sc *segmentClock) firedCh(id graph.SegmentID) <-chan struct{} {
	if id == "" {
		return nil
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.fired[id]
}

// arm starts the deadline timer for seg the first time any of its member
// nodes becomes active; subsequent calls for the same segment are no-ops.
func (sc *segmentClock) arm(seg *graph.Segment, onDeadline func()) {
	if seg == nil || seg.DeadlineSeconds <= 0 {
		return
	}
	sc.mu.Lock()
	once := sc.once[seg.ID]
	fired := sc.fired[seg.ID]
	sc.mu.Unlock()
	if once == nil {
		return
	}
	once.Do(func() {
		timer := time.AfterFunc(time.Duration(seg.DeadlineSeconds*float64(time.Second)), func() {
			close(fired)
			onDeadline()
		})
		sc.mu.Lock()
		sc.stopped[seg.ID] = timer.Stop
		sc.mu.Unlock()
	})
}

// stopAll cancels every still-pending timer, for early shutdown paths
// (cancellation, fatal error) where a segment deadline will never matter.
func (sc *segmentClock) stopAll() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, stop := range sc.stopped {
		stop()
	}
}
