// Package search runs a hash-guessing task: N workers race over candidate
// streams drawn from one compiled pattern until a candidate's digest equals
// the target, every stream is exhausted, or the task is stopped.
package search

import (
	"context"
	"fmt"
	"math/big"
	"math/rand/v2"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"hashsearch/internal/async"
	"hashsearch/internal/candidate"
	"hashsearch/internal/digest"
	"hashsearch/internal/logging"
	"hashsearch/internal/observability"
	"hashsearch/internal/pattern"
)

// Mode selects how workers generate candidates.
type Mode int

const (
	// ModeLexicographic splits the candidate space into one contiguous range
	// per worker and enumerates it in order. Finite.
	ModeLexicographic Mode = iota
	// ModeRandom draws candidates independently per worker. Never exhausts.
	ModeRandom
)

func (m Mode) String() string {
	switch m {
	case ModeLexicographic:
		return "lexicographic"
	case ModeRandom:
		return "random"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "lexicographic" (or "lex", "sequential") and "random".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lexicographic", "lex", "sequential":
		return ModeLexicographic, nil
	case "random", "rand":
		return ModeRandom, nil
	default:
		return 0, &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", s)}
	}
}

// Config describes one search task.
type Config struct {
	Target    string
	Algorithm string
	Pattern   string
	// Alphabet extends the characters a pattern may produce.
	Alphabet string
	// Workers defaults to the number of CPUs when zero.
	Workers int
	Mode    Mode
	// ReportInterval rate-limits progress events. Zero reports every
	// candidate.
	ReportInterval time.Duration
	// Seed for random mode; worker i uses Seed+i. Zero picks a random seed.
	Seed uint64
	// DedupWindow enables a per-worker window of recently drawn candidates
	// that random mode skips. Zero disables it.
	DedupWindow int
}

// Dependencies are the optional collaborators of a task. Nil fields fall back
// to no-op implementations.
type Dependencies struct {
	Sink    Sink
	Logger  logging.Logger
	Metrics *Metrics
	Tracer  trace.Tracer
}

// Result summarises a finished run.
type Result struct {
	TaskID    string
	Matched   bool
	Candidate string
	// WorkerID is the winning worker, or -1 without a match.
	WorkerID  int
	Exhausted bool
	Total     *big.Int
	Elapsed   time.Duration
}

// Outcome is "matched", "exhausted" or "stopped".
func (r Result) Outcome() string {
	switch {
	case r.Matched:
		return "matched"
	case r.Exhausted:
		return "exhausted"
	default:
		return "stopped"
	}
}

type worker struct {
	status *WorkerStatus
	stream candidate.Stream
	hasher *digest.Hasher
}

// publishSkips copies the dedup counter into the shared status. Only the
// owning worker may call it, since the stream is not shared.
func (w *worker) publishSkips() {
	if d, ok := w.stream.(*candidate.Dedup); ok {
		w.status.skipped.Store(d.Skipped())
	}
}

// Task is a configured search. It runs once.
type Task struct {
	id      string
	cfg     Config
	alg     digest.Algorithm
	target  []byte
	pattern *pattern.Pattern
	workers []*worker
	ctl     *control

	sink    Sink
	logger  logging.Logger
	metrics *Metrics
	tracer  trace.Tracer

	started atomic.Bool
	winner  atomic.Int64
	winning atomic.Pointer[string]
}

// NewTask validates cfg and prepares one candidate stream per worker.
// Settings are checked in order: algorithm, target digest, pattern, then the
// remaining numeric fields. Pattern errors are returned as
// *pattern.CompileError, everything else as *ConfigurationError.
func NewTask(cfg Config, deps Dependencies) (*Task, error) {
	alg, err := digest.Lookup(cfg.Algorithm)
	if err != nil {
		return nil, configError("algorithm", err)
	}
	target, err := digest.ParseTarget(cfg.Target, alg)
	if err != nil {
		return nil, configError("target", err)
	}

	var opts []pattern.Option
	if cfg.Alphabet != "" {
		opts = append(opts, pattern.WithAlphabet(cfg.Alphabet))
	}
	p, err := pattern.Compile(cfg.Pattern, opts...)
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.Workers < 0:
		return nil, &ConfigurationError{Field: "workers", Reason: fmt.Sprintf("must not be negative, got %d", cfg.Workers)}
	case cfg.ReportInterval < 0:
		return nil, &ConfigurationError{Field: "interval", Reason: fmt.Sprintf("must not be negative, got %s", cfg.ReportInterval)}
	case cfg.DedupWindow < 0:
		return nil, &ConfigurationError{Field: "dedup", Reason: fmt.Sprintf("must not be negative, got %d", cfg.DedupWindow)}
	case cfg.Mode != ModeLexicographic && cfg.Mode != ModeRandom:
		return nil, &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %s", cfg.Mode)}
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Mode == ModeRandom && cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}

	t := &Task{
		id:      uuid.NewString(),
		cfg:     cfg,
		alg:     alg,
		target:  target,
		pattern: p,
		ctl:     newControl(cfg.ReportInterval),
		sink:    deps.Sink,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}
	t.winner.Store(-1)
	if t.sink == nil {
		t.sink = nopSink{}
	}
	if t.tracer == nil {
		t.tracer = noop.NewTracerProvider().Tracer("hashsearch")
	}
	t.logger = logging.With(deps.Logger, "task_id", t.id)

	var ranges []candidate.Range
	if cfg.Mode == ModeLexicographic {
		ranges = candidate.Partition(p.Size(), cfg.Workers)
	}
	t.workers = make([]*worker, cfg.Workers)
	for i := range t.workers {
		var stream candidate.Stream
		if cfg.Mode == ModeRandom {
			stream = candidate.NewDedup(candidate.NewRandom(p, cfg.Seed+uint64(i)), cfg.DedupWindow)
		} else {
			lex, err := candidate.NewLexicographic(p, ranges[i])
			if err != nil {
				return nil, fmt.Errorf("search: worker %d range: %w", i, err)
			}
			stream = lex
		}
		t.workers[i] = &worker{
			status: newWorkerStatus(i),
			stream: stream,
			hasher: alg.NewHasher(),
		}
	}
	return t, nil
}

// Run starts every worker and blocks until all of them have stopped.
// Cancelling ctx is an ordinary stop request, not an error. The returned
// error is non-nil only if a worker panicked or the task was already run.
func (t *Task) Run(ctx context.Context) (Result, error) {
	if !t.started.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyStarted
	}
	start := time.Now()

	ctx, span := t.tracer.Start(ctx, observability.SpanTaskRun, trace.WithAttributes(
		observability.TaskAttrs(t.id, t.alg.Name, t.pattern.String(), t.cfg.Mode.String(), len(t.workers), t.pattern.Size())...,
	))
	defer span.End()

	stopOnCancel := context.AfterFunc(ctx, t.StopAll)
	defer stopOnCancel()

	t.logger.Info("search started: algorithm=%s pattern=%q space=%s workers=%d mode=%s",
		t.alg.Name, t.pattern.String(), t.pattern.Size(), len(t.workers), t.cfg.Mode)

	var g errgroup.Group
	for _, w := range t.workers {
		t.metrics.IncWorkers()
		g.Go(async.Guard(t.logger, fmt.Sprintf("worker-%d", w.status.id), func() error {
			defer t.finish(w)
			t.work(w)
			return nil
		}))
	}
	err := g.Wait()
	t.ctl.stop()

	res := t.result(time.Since(start))
	span.SetAttributes(observability.OutcomeAttrs(res.Matched, res.Exhausted, res.Total)...)
	if err != nil {
		observability.RecordError(span, err)
		t.logger.Error("search failed after %s: %v", res.Elapsed, err)
	}
	t.metrics.ObserveTask(res.Outcome(), res.Elapsed)
	t.logger.Info("search finished: outcome=%s candidates=%s elapsed=%s", res.Outcome(), res.Total, res.Elapsed)
	return res, err
}

// work is the per-worker loop. Stop and pause are checked before every
// candidate, so a stop request takes effect within one hash computation.
func (t *Task) work(w *worker) {
	st := w.status
	last := time.Now()
	for {
		if t.ctl.isStopped() {
			st.stopWith(t.siblingReason())
			return
		}
		if t.ctl.isPaused() {
			st.setState(Paused)
			parked := time.Now()
			if !t.ctl.wait() {
				continue
			}
			// Time spent parked is not part of the report window.
			last = last.Add(time.Since(parked))
			st.setState(Running)
		}

		cand, ok := w.stream.Next()
		if !ok {
			st.stopWith(ReasonExhausted)
			return
		}
		hit := digest.Equal(w.hasher.Sum(cand), t.target)
		st.record(cand)

		if hit {
			t.claim(w, cand, time.Since(last))
			return
		}

		now := time.Now()
		if window := now.Sub(last); window >= t.ctl.reportInterval() {
			t.report(w, cand, window)
			last = now
		}
	}
}

// claim settles a hit. Only the first worker to claim wins; a concurrent
// second hit is treated like any other sibling stop.
func (t *Task) claim(w *worker, cand string, window time.Duration) {
	st := w.status
	if !t.winner.CompareAndSwap(-1, int64(st.id)) {
		st.stopWith(ReasonSiblingMatched)
		return
	}
	t.winning.Store(&cand)
	st.matched.Store(true)
	t.ctl.stop()

	t.report(w, cand, window)
	t.sink.OnMatchFound(st.id, cand)
	t.metrics.IncMatch(t.alg.Name)
	t.logger.Info("plaintext found by worker %d: %q", st.id, cand)
	st.stopWith(ReasonMatched)
}

func (t *Task) siblingReason() StopReason {
	if t.winner.Load() >= 0 {
		return ReasonSiblingMatched
	}
	return ReasonCancelled
}

func (t *Task) report(w *worker, cand string, window time.Duration) {
	st := w.status
	w.publishSkips()
	recent := st.takeRecent()
	t.metrics.AddCandidates(t.alg.Name, recent)

	var rate float64
	if window > 0 {
		rate = float64(recent) / window.Seconds()
	}
	t.sink.OnProgress(Progress{
		WorkerID:   st.id,
		Candidate:  cand,
		Recent:     recent,
		Window:     window,
		Rate:       rate,
		Cumulative: st.Cumulative(),
	})
}

// finish runs once per worker, including when the loop panicked. A worker
// that ends without a recorded reason takes the task down with it.
func (t *Task) finish(w *worker) {
	st := w.status
	if st.StopReason() == ReasonNone {
		st.stopWith(ReasonCancelled)
		t.StopAll()
	}
	w.publishSkips()
	t.metrics.AddCandidates(t.alg.Name, st.Recent())
	t.metrics.IncWorkerStop(st.StopReason())
	t.metrics.DecWorkers()
	t.logger.Debug("worker %d stopped: reason=%s candidates=%s skipped=%d", st.id, st.StopReason(), st.Cumulative(), st.Skipped())
	t.sink.OnWorkerStopped(st.id, st.Matched())
}

func (t *Task) result(elapsed time.Duration) Result {
	res := Result{
		TaskID:    t.id,
		WorkerID:  int(t.winner.Load()),
		Total:     new(big.Int),
		Elapsed:   elapsed,
		Exhausted: len(t.workers) > 0,
	}
	for _, w := range t.workers {
		res.Total.Add(res.Total, w.status.Cumulative())
		if w.status.StopReason() != ReasonExhausted {
			res.Exhausted = false
		}
	}
	if c := t.winning.Load(); c != nil {
		res.Matched = true
		res.Candidate = *c
		res.Exhausted = false
	}
	return res
}

// PauseAll suspends every worker before its next candidate. Idempotent.
func (t *Task) PauseAll() {
	if t.ctl.pause() {
		t.logger.Info("search paused")
	}
}

// ResumeAll wakes every paused worker. Idempotent.
func (t *Task) ResumeAll() {
	if t.ctl.resume() {
		t.logger.Info("search resumed")
	}
}

// StopAll asks every worker to stop, including paused ones. Idempotent.
func (t *Task) StopAll() {
	if t.ctl.stop() && t.winner.Load() < 0 {
		t.logger.Info("search stop requested")
	}
}

// SetReportingInterval changes the progress rate limit for subsequent
// reports. Negative durations are rejected and the previous value is kept.
func (t *Task) SetReportingInterval(d time.Duration) error {
	if d < 0 {
		return &ConfigurationError{Field: "interval", Reason: fmt.Sprintf("must not be negative, got %s", d)}
	}
	t.ctl.setReportInterval(d)
	t.logger.Debug("reporting interval set to %s", d)
	return nil
}

// ReportingInterval returns the current progress rate limit.
func (t *Task) ReportingInterval() time.Duration { return t.ctl.reportInterval() }

func (t *Task) Paused() bool  { return t.ctl.isPaused() }
func (t *Task) Stopped() bool { return t.ctl.isStopped() }

// Snapshot returns the current counters of every worker.
func (t *Task) Snapshot() []WorkerSnapshot {
	out := make([]WorkerSnapshot, len(t.workers))
	for i, w := range t.workers {
		out[i] = w.status.Snapshot()
	}
	return out
}

// Status returns the live counters of worker id.
func (t *Task) Status(id int) *WorkerStatus {
	if id < 0 || id >= len(t.workers) {
		return nil
	}
	return t.workers[id].status
}

func (t *Task) ID() string                  { return t.id }
func (t *Task) Algorithm() digest.Algorithm { return t.alg }
func (t *Task) Pattern() *pattern.Pattern   { return t.pattern }
func (t *Task) Mode() Mode                  { return t.cfg.Mode }
func (t *Task) WorkerCount() int            { return len(t.workers) }
func (t *Task) Seed() uint64                { return t.cfg.Seed }
