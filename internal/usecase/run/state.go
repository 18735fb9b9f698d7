package run

import (
	"sync/atomic"
	"time"
)

// State is a step of the run loop.
type State string

// Run loop states.
const (
	StateInit    State = "init"
	StateConnect State = "connect"
	StateSelect  State = "select"
	StateProcess State = "process"
	StateWrite   State = "write"
	StateDone    State = "done"
)

// Progress exposes live counters of the current run to other goroutines.
type Progress struct {
	runID     atomic.Value // string
	state     atomic.Value // State
	startedAt atomic.Int64
	batches   atomic.Int64
	tagged    atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

// Snapshot is a point-in-time copy of Progress.
type Snapshot struct {
	RunID     string    `json:"run_id"`
	State     State     `json:"state"`
	StartedAt time.Time `json:"started_at"`
	Batches   int64     `json:"batches"`
	Tagged    int64     `json:"tagged"`
	Failed    int64     `json:"failed"`
	Skipped   int64     `json:"skipped"`
}

// NewProgress creates an idle Progress.
func NewProgress() *Progress {
	p := &Progress{}
	p.runID.Store("")
	p.state.Store(StateInit)
	return p
}

func (p *Progress) start(runID string, at time.Time) {
	p.runID.Store(runID)
	p.startedAt.Store(at.Unix())
	p.batches.Store(0)
	p.tagged.Store(0)
	p.failed.Store(0)
	p.skipped.Store(0)
	p.set(StateInit)
}

func (p *Progress) set(s State) { p.state.Store(s) }

// Snapshot reads all counters.
func (p *Progress) Snapshot() Snapshot {
	s := Snapshot{
		RunID:   p.runID.Load().(string),
		State:   p.state.Load().(State),
		Batches: p.batches.Load(),
		Tagged:  p.tagged.Load(),
		Failed:  p.failed.Load(),
		Skipped: p.skipped.Load(),
	}
	if ts := p.startedAt.Load(); ts != 0 {
		s.StartedAt = time.Unix(ts, 0).UTC()
	}
	return s
}
