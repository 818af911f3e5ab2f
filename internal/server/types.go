package server

import (
	"math/big"
	"time"

	"hashsearch/internal/search"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TaskInfo describes the task the server controls.
type TaskInfo struct {
	ID        string   `json:"id"`
	Algorithm string   `json:"algorithm"`
	Pattern   string   `json:"pattern"`
	Mode      string   `json:"mode"`
	Workers   int      `json:"workers"`
	SpaceSize *big.Int `json:"space_size"`
	Seed      uint64   `json:"seed,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// StatusResponse is returned by GET /api/status. DroppedEvents counts
// stream events discarded for slow WebSocket clients.
type StatusResponse struct {
	Task          *TaskInfo               `json:"task,omitempty"`
	Paused        bool                    `json:"paused"`
	Stopped       bool                    `json:"stopped"`
	Interval      string                  `json:"interval"`
	Workers       []search.WorkerSnapshot `json:"workers"`
	Result        *ResultView             `json:"result,omitempty"`
	DroppedEvents uint64                  `json:"dropped_events"`
}

// ControlResponse is returned by the pause, resume and stop endpoints.
type ControlResponse struct {
	Paused  bool `json:"paused"`
	Stopped bool `json:"stopped"`
}

// IntervalRequest is the body of PUT /api/interval.
type IntervalRequest struct {
	Interval string `json:"interval" binding:"required"`
}

// ResultView is the JSON form of a finished search.
type ResultView struct {
	Outcome   string   `json:"outcome"`
	Candidate string   `json:"candidate,omitempty"`
	WorkerID  int      `json:"worker_id"`
	Total     *big.Int `json:"total"`
	Elapsed   string   `json:"elapsed"`
}

func newResultView(res search.Result) *ResultView {
	return &ResultView{
		Outcome:   res.Outcome(),
		Candidate: res.Candidate,
		WorkerID:  res.WorkerID,
		Total:     res.Total,
		Elapsed:   res.Elapsed.String(),
	}
}

// Event types pushed on /api/stream.
const (
	EventProgress = "progress"
	EventMatch    = "match"
	EventStopped  = "stopped"
	EventFinished = "finished"
)

// Event is one WebSocket message.
type Event struct {
	Type       string      `json:"type"`
	WorkerID   int         `json:"worker_id"`
	Candidate  string      `json:"candidate,omitempty"`
	Recent     uint64      `json:"recent,omitempty"`
	Rate       float64     `json:"rate,omitempty"`
	Cumulative *big.Int    `json:"cumulative,omitempty"`
	Matched    bool        `json:"matched,omitempty"`
	Result     *ResultView `json:"result,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
