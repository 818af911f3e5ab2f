package search

import (
	"math"
	"math/big"
	"sync/atomic"
)

// State is a worker's position in its lifecycle. Stopped is terminal.
type State int32

const (
	Running State = iota
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StopReason records why a worker reached Stopped.
type StopReason int32

const (
	ReasonNone StopReason = iota
	ReasonMatched
	ReasonExhausted
	ReasonCancelled
	ReasonSiblingMatched
)

func (r StopReason) String() string {
	switch r {
	case ReasonMatched:
		return "matched"
	case ReasonExhausted:
		return "exhausted"
	case ReasonCancelled:
		return "cancelled"
	case ReasonSiblingMatched:
		return "sibling_matched"
	default:
		return ""
	}
}

var twoTo64 = new(big.Int).Lsh(big.NewInt(1), 64)

// WorkerStatus holds the counters of one worker. Only the owning worker
// writes; any goroutine may read and sees values that are at worst slightly
// stale.
//
// The cumulative count is kept as a 64-bit fast path plus a big.Int carry of
// whole 2^64 blocks. gen is odd while a carry is in progress so readers can
// retry instead of observing a torn value.
type WorkerStatus struct {
	id int

	gen     atomic.Uint64
	lo      atomic.Uint64
	carried atomic.Pointer[big.Int]

	recent  atomic.Uint64
	last    atomic.Pointer[string]
	matched atomic.Bool
	state   atomic.Int32
	reason  atomic.Int32
	skipped atomic.Uint64
}

func newWorkerStatus(id int) *WorkerStatus {
	s := &WorkerStatus{id: id}
	s.carried.Store(new(big.Int))
	return s
}

// record counts one attempted candidate.
func (s *WorkerStatus) record(candidate string) {
	if s.lo.Load() == math.MaxUint64 {
		s.gen.Add(1)
		next := new(big.Int).Add(s.carried.Load(), twoTo64)
		s.carried.Store(next)
		s.lo.Store(0)
		s.gen.Add(1)
	} else {
		s.lo.Add(1)
	}
	s.recent.Add(1)
	s.last.Store(&candidate)
}

// takeRecent returns the since-report count and resets it.
func (s *WorkerStatus) takeRecent() uint64 {
	return s.recent.Swap(0)
}

// ID returns the worker index.
func (s *WorkerStatus) ID() int { return s.id }

// Cumulative returns the total number of candidates tried.
func (s *WorkerStatus) Cumulative() *big.Int {
	for {
		g1 := s.gen.Load()
		if g1%2 == 1 {
			continue
		}
		carried := s.carried.Load()
		lo := s.lo.Load()
		if s.gen.Load() != g1 {
			continue
		}
		out := new(big.Int).SetUint64(lo)
		return out.Add(out, carried)
	}
}

// Recent returns candidates tried since the last progress report.
func (s *WorkerStatus) Recent() uint64 { return s.recent.Load() }

// LastCandidate returns the most recently attempted candidate.
func (s *WorkerStatus) LastCandidate() string {
	if p := s.last.Load(); p != nil {
		return *p
	}
	return ""
}

func (s *WorkerStatus) Matched() bool { return s.matched.Load() }

// Skipped returns how many random draws the dedup window discarded, as of
// the worker's last report.
func (s *WorkerStatus) Skipped() uint64 { return s.skipped.Load() }

func (s *WorkerStatus) State() State { return State(s.state.Load()) }

func (s *WorkerStatus) StopReason() StopReason { return StopReason(s.reason.Load()) }

func (s *WorkerStatus) setState(st State) { s.state.Store(int32(st)) }

// stopWith records the terminal reason once; later calls are ignored.
func (s *WorkerStatus) stopWith(r StopReason) bool {
	if !s.reason.CompareAndSwap(int32(ReasonNone), int32(r)) {
		return false
	}
	s.setState(Stopped)
	return true
}

// WorkerSnapshot is a point-in-time copy of a WorkerStatus for reporting.
type WorkerSnapshot struct {
	ID         int      `json:"id"`
	State      string   `json:"state"`
	Candidate  string   `json:"candidate"`
	Recent     uint64   `json:"recent"`
	Cumulative *big.Int `json:"cumulative"`
	Matched    bool     `json:"matched"`
	StopReason string   `json:"stop_reason,omitempty"`
	Skipped    uint64   `json:"skipped,omitempty"`
}

// Snapshot copies the current counters.
func (s *WorkerStatus) Snapshot() WorkerSnapshot {
	return WorkerSnapshot{
		ID:         s.id,
		State:      s.State().String(),
		Candidate:  s.LastCandidate(),
		Recent:     s.Recent(),
		Cumulative: s.Cumulative(),
		Matched:    s.Matched(),
		StopReason: s.StopReason().String(),
		Skipped:    s.Skipped(),
	}
}
