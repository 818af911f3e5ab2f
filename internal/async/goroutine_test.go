package async

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

type stubPanicLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *stubPanicLogger) Error(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf(format, args...))
}

func (l *stubPanicLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.messages))
	copy(out, l.messages)
	return out
}

func TestGoRecoversPanic(t *testing.T) {
	logger := &stubPanicLogger{}
	done := make(chan struct{})

	Go(logger, "test", func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for goroutine")
	}

	deadline := time.Now().Add(200 * time.Millisecond)
	for {
		messages := logger.snapshot()
		for _, msg := range messages {
			if strings.Contains(msg, "goroutine panic [test]") {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected panic log, got %v", messages)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRecoverHandlesNilLogger(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()

	func() {
		defer Recover(nil, "nil-logger")
		panic("boom")
	}()
}

func TestGuardTurnsPanicIntoError(t *testing.T) {
	logger := &stubPanicLogger{}
	var g errgroup.Group
	g.Go(Guard(logger, "worker-1", func() error { panic("bad segment") }))
	g.Go(Guard(logger, "worker-2", func() error { return nil }))

	err := g.Wait()
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %v", err)
	}
	if pe.Name != "worker-1" || pe.Value != "bad segment" {
		t.Fatalf("unexpected panic error %+v", pe)
	}
	if got := logger.snapshot(); len(got) != 1 || !strings.Contains(got[0], "goroutine panic [worker-1]") {
		t.Fatalf("expected one panic log, got %v", got)
	}
}

func TestGuardPassesErrorsThrough(t *testing.T) {
	want := errors.New("plain")
	if err := Guard(nil, "", func() error { return want })(); err != want {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
