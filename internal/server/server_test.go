package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashsearch/internal/search"
)

type fakeController struct {
	mu       sync.Mutex
	paused   bool
	stopped  bool
	interval time.Duration
}

func (f *fakeController) PauseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.paused = true
	}
}

func (f *fakeController) ResumeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
}

func (f *fakeController) StopAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.paused = false
}

func (f *fakeController) SetReportingInterval(d time.Duration) error {
	if d < 0 {
		return errors.New("interval must not be negative")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interval = d
	return nil
}

func (f *fakeController) ReportingInterval() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interval
}

func (f *fakeController) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeController) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeController) Snapshot() []search.WorkerSnapshot {
	return []search.WorkerSnapshot{{ID: 0, State: "running", Cumulative: big.NewInt(42)}}
}

func newTestServer(t *testing.T) (*Server, *fakeController) {
	t.Helper()
	s := New(Config{Addr: "127.0.0.1:0", Version: "test"}, nil, nil)
	ctrl := &fakeController{interval: 500 * time.Millisecond}
	s.Attach(ctrl, TaskInfo{ID: "task-1", Algorithm: "md5", Pattern: "[a-c]{3}", Mode: "lexicographic", Workers: 1, SpaceSize: big.NewInt(27)})
	return s, ctrl
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec, resp := do(t, s.Handler(), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "test", data["version"])
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t)
	rec, resp := do(t, s.Handler(), http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["paused"])
	assert.Equal(t, "500ms", data["interval"])
	task := data["task"].(map[string]any)
	assert.Equal(t, "task-1", task["id"])
	assert.Equal(t, float64(27), task["space_size"])
	assert.Len(t, data["workers"], 1)
	assert.Nil(t, data["result"])
}

func TestStatusReportsDroppedEvents(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0", EventBuffer: 1}, nil, nil)
	s.Attach(&fakeController{}, TaskInfo{ID: "task-2", Mode: "random", Seed: 7, SpaceSize: big.NewInt(2)})
	s.Hub().Subscribe()

	for i := 0; i < 3; i++ {
		s.OnProgress(search.Progress{WorkerID: 0, Candidate: "a", Cumulative: big.NewInt(int64(i))})
	}

	_, resp := do(t, s.Handler(), http.MethodGet, "/api/status", "")
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["dropped_events"])
	assert.Equal(t, float64(7), data["task"].(map[string]any)["seed"])
}

func TestControlEndpoints(t *testing.T) {
	s, ctrl := newTestServer(t)
	h := s.Handler()

	rec, resp := do(t, h, http.MethodPost, "/api/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ctrl.Paused())
	assert.Equal(t, true, resp.Data.(map[string]any)["paused"])

	rec, _ = do(t, h, http.MethodPost, "/api/resume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ctrl.Paused())

	rec, resp = do(t, h, http.MethodPost, "/api/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ctrl.Stopped())
	assert.Equal(t, true, resp.Data.(map[string]any)["stopped"])

	// Pause after stop is a no-op.
	do(t, h, http.MethodPost, "/api/pause", "")
	assert.False(t, ctrl.Paused())
}

func TestControlWithoutTask(t *testing.T) {
	s := New(Config{}, nil, nil)
	for _, path := range []string{"/api/pause", "/api/resume", "/api/stop"} {
		rec, resp := do(t, s.Handler(), http.MethodPost, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.False(t, resp.Success)
	}

	rec, resp := do(t, s.Handler(), http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestSetInterval(t *testing.T) {
	s, ctrl := newTestServer(t)
	h := s.Handler()

	rec, resp := do(t, h, http.MethodPut, "/api/interval", `{"interval":"250ms"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 250*time.Millisecond, ctrl.ReportingInterval())
	assert.Equal(t, "250ms", resp.Data.(map[string]any)["interval"])

	for _, body := range []string{`{"interval":"-1s"}`, `{"interval":"soon"}`, `{}`, `not json`} {
		rec, resp = do(t, h, http.MethodPut, "/api/interval", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.False(t, resp.Success)
	}
	assert.Equal(t, 250*time.Millisecond, ctrl.ReportingInterval())
}

func TestRejectsNonJSONBody(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPut, "/api/interval", strings.NewReader("interval=1s"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestFinishIsReportedInStatus(t *testing.T) {
	s, _ := newTestServer(t)
	s.Finish(search.Result{Matched: true, Candidate: "abc", WorkerID: 2, Total: big.NewInt(7), Elapsed: time.Second})

	_, resp := do(t, s.Handler(), http.MethodGet, "/api/status", "")
	result := resp.Data.(map[string]any)["result"].(map[string]any)
	assert.Equal(t, "matched", result["outcome"])
	assert.Equal(t, "abc", result["candidate"])
	assert.Equal(t, float64(2), result["worker_id"])
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func dialStream(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return s.Hub().Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestStreamDeliversSinkEvents(t *testing.T) {
	s, _ := newTestServer(t)
	conn := dialStream(t, s)

	s.OnProgress(search.Progress{WorkerID: 1, Candidate: "abb", Recent: 5, Rate: 10, Cumulative: big.NewInt(12)})
	s.OnMatchFound(1, "abc")
	s.OnWorkerStopped(1, true)
	s.Finish(search.Result{Matched: true, Candidate: "abc", WorkerID: 1, Total: big.NewInt(13)})

	ev := readEvent(t, conn)
	assert.Equal(t, EventProgress, ev.Type)
	assert.Equal(t, "abb", ev.Candidate)
	assert.Equal(t, "12", ev.Cumulative.String())

	ev = readEvent(t, conn)
	assert.Equal(t, EventMatch, ev.Type)
	assert.Equal(t, "abc", ev.Candidate)
	assert.True(t, ev.Matched)

	ev = readEvent(t, conn)
	assert.Equal(t, EventStopped, ev.Type)
	assert.True(t, ev.Matched)

	ev = readEvent(t, conn)
	assert.Equal(t, EventFinished, ev.Type)
	require.NotNil(t, ev.Result)
	assert.Equal(t, "matched", ev.Result.Outcome)
}

func TestStreamClientDisconnectUnsubscribes(t *testing.T) {
	s, _ := newTestServer(t)
	conn := dialStream(t, s)
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.Hub().Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
