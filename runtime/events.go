package runtime

import (
	"time"

	"github.com/vidpipe/vidpipe/graph"
)

// Status is a run's final disposition (spec.md §6 "exit conditions").
type Status int

const (
	StatusNormal Status = iota
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EventKind distinguishes the structured runtime events of spec.md §7.
type EventKind string

const (
	EventFault           EventKind = "fault"
	EventWorkerStarted   EventKind = "worker_started"
	EventWorkerDraining  EventKind = "worker_draining"
	EventWorkerStopped   EventKind = "worker_stopped"
	EventWorkerFaulted   EventKind = "worker_faulted"
	EventSegmentDeadline EventKind = "segment_deadline"
	EventCancelled       EventKind = "cancelled"
)

// Event is one entry of the structured event stream a host observes during
// a run: `{timestamp, node_id, kind, detail}` from spec.md §7.
type Event struct {
	Timestamp time.Time
	NodeID    graph.ENodeID
	Kind      EventKind
	Detail    string
}

// Report is returned by Supervisor.Run when the run ends.
type Report struct {
	Status     Status
	Reason     string
	NodeFaults map[graph.ENodeID]int
}
