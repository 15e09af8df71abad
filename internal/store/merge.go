package store

import (
	"maps"

	"github.com/javiermolinar/hourly/internal/task"
)

// State is the lifecycle position of a pending mutation.
type State int

const (
	// StateInflight means the persistence call has not returned yet.
	StateInflight State = iota
	// StateCommitted means the call succeeded and a matching snapshot is awaited.
	StateCommitted
	// StateFailed means the call returned an error. The local effect stays
	// visible until the next snapshot.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInflight:
		return "inflight"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pending is an optimistic local change awaiting remote confirmation.
type Pending struct {
	ID       string
	Mutation task.Mutation
	State    State
	Err      error
}

// Reconciliation reports what a snapshot did to the pending overlay.
type Reconciliation struct {
	// Acked mutations were already reflected by the snapshot.
	Acked []Pending
	// Dropped mutations were not reflected and their local effect is gone.
	Dropped []Pending
}

// Compose overlays pending mutations, in order, on the confirmed set.
// Failed mutations are composed too: a failure does not roll back the
// local view.
func Compose(confirmed map[string]task.Task, overlay []Pending) map[string]task.Task {
	view := maps.Clone(confirmed)
	if view == nil {
		view = make(map[string]task.Task)
	}
	for _, p := range overlay {
		p.Mutation.Apply(view)
	}
	return view
}

// Reconcile decides the fate of the overlay when a snapshot arrives.
// The snapshot always wins: every pending mutation leaves the overlay.
// Those it already reflects are acknowledged, the rest are dropped.
func Reconcile(overlay []Pending, snapshot map[string]task.Task) Reconciliation {
	var r Reconciliation
	for _, p := range overlay {
		if p.Mutation.Reflected(snapshot) {
			r.Acked = append(r.Acked, p)
		} else {
			r.Dropped = append(r.Dropped, p)
		}
	}
	return r
}
