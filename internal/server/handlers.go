package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: HealthResponse{
			Status:    "ok",
			Version:   s.config.Version,
			Timestamp: time.Now(),
			Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		},
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	ctrl, info, result := s.controller()
	resp := StatusResponse{Task: info, Result: result, DroppedEvents: s.hub.Dropped()}
	if ctrl != nil {
		resp.Paused = ctrl.Paused()
		resp.Stopped = ctrl.Stopped()
		resp.Interval = ctrl.ReportingInterval().String()
		resp.Workers = ctrl.Snapshot()
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: resp})
}

// requireTask rejects control calls until a task is attached.
func (s *Server) requireTask(h func(*gin.Context, Controller)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, _, _ := s.controller()
		if ctrl == nil {
			c.JSON(http.StatusServiceUnavailable, APIResponse{Success: false, Error: "no search task attached"})
			return
		}
		h(c, ctrl)
	}
}

func controlResponse(ctrl Controller) APIResponse {
	return APIResponse{Success: true, Data: ControlResponse{Paused: ctrl.Paused(), Stopped: ctrl.Stopped()}}
}

func (s *Server) handlePause(c *gin.Context, ctrl Controller) {
	ctrl.PauseAll()
	c.JSON(http.StatusOK, controlResponse(ctrl))
}

func (s *Server) handleResume(c *gin.Context, ctrl Controller) {
	ctrl.ResumeAll()
	c.JSON(http.StatusOK, controlResponse(ctrl))
}

func (s *Server) handleStop(c *gin.Context, ctrl Controller) {
	ctrl.StopAll()
	c.JSON(http.StatusOK, controlResponse(ctrl))
}

func (s *Server) handleInterval(c *gin.Context, ctrl Controller) {
	var req IntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: err.Error()})
		return
	}
	d, err := time.ParseDuration(req.Interval)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: err.Error()})
		return
	}
	if err := ctrl.SetReportingInterval(d); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"interval": ctrl.ReportingInterval().String()}})
}
