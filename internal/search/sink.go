package search

import (
	"math/big"
	"time"
)

// Progress is one advisory throughput report from a worker.
type Progress struct {
	WorkerID   int
	Candidate  string
	Recent     uint64
	Window     time.Duration
	Rate       float64
	Cumulative *big.Int
}

// Sink receives worker events. Methods are called from worker goroutines,
// concurrently, and must not block for long: a slow sink slows the search.
type Sink interface {
	// OnProgress is rate limited by the task's reporting interval.
	OnProgress(Progress)
	// OnMatchFound fires exactly once per task, from the winning worker.
	OnMatchFound(workerID int, candidate string)
	// OnWorkerStopped fires exactly once per worker.
	OnWorkerStopped(workerID int, matched bool)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	Progress      func(Progress)
	MatchFound    func(workerID int, candidate string)
	WorkerStopped func(workerID int, matched bool)
}

func (f SinkFuncs) OnProgress(p Progress) {
	if f.Progress != nil {
		f.Progress(p)
	}
}

func (f SinkFuncs) OnMatchFound(workerID int, candidate string) {
	if f.MatchFound != nil {
		f.MatchFound(workerID, candidate)
	}
}

func (f SinkFuncs) OnWorkerStopped(workerID int, matched bool) {
	if f.WorkerStopped != nil {
		f.WorkerStopped(workerID, matched)
	}
}

// MultiSink fans every event out to each sink in order.
type MultiSink []Sink

func (m MultiSink) OnProgress(p Progress) {
	for _, s := range m {
		s.OnProgress(p)
	}
}

func (m MultiSink) OnMatchFound(workerID int, candidate string) {
	for _, s := range m {
		s.OnMatchFound(workerID, candidate)
	}
}

func (m MultiSink) OnWorkerStopped(workerID int, matched bool) {
	for _, s := range m {
		s.OnWorkerStopped(workerID, matched)
	}
}

type nopSink struct{}

func (nopSink) OnProgress(Progress)       {}
func (nopSink) OnMatchFound(int, string)  {}
func (nopSink) OnWorkerStopped(int, bool) {}
