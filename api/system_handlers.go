package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lamp/define"
	"lamp/device"
)

func (s *Server) handleGetSupportedModels(c *gin.Context) {
	models := device.GetSupportedModels()

	c.JSON(http.StatusOK, define.ApiResponse{
		Status: "success",
		Data: SupportedModelsResponse{
			Models: models,
			Total:  len(models),
		},
	})
}

func (s *Server) handleGetSystemStatus(c *gin.Context) {
	actuators := s.manager.List()

	running := 0
	statuses := make(map[string]device.Status, len(actuators))
	for _, a := range actuators {
		st := a.Status()
		if st.State == define.STATE_RUNNING {
			running++
		}
		statuses[st.ID] = st
	}

	c.JSON(http.StatusOK, define.ApiResponse{
		Status: "success",
		Data: SystemStatusResponse{
			TotalActuators:   len(actuators),
			RunningActuators: running,
			SupportedModels:  device.GetSupportedModels(),
			Actuators:        statuses,
			Uptime:           time.Since(s.startTime).Round(time.Second).String(),
		},
	})
}

// handleHealthCheck reports unhealthy when any registered actuator is not running.
func (s *Server) handleHealthCheck(c *gin.Context) {
	status := "healthy"
	if s.manager == nil {
		status = "unhealthy"
	} else {
		for _, a := range s.manager.List() {
			if a.Status().State != define.STATE_RUNNING {
				status = "degraded"
				break
			}
		}
	}

	httpStatus := http.StatusOK
	if status != "healthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, define.ApiResponse{
		Status: "success",
		Data: HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   s.version,
		},
	})
}

func (s *Server) handleGetEvents(c *gin.Context) {
	events := s.events.Recent()
	c.JSON(http.StatusOK, define.ApiResponse{
		Status: "success",
		Data: EventListResponse{
			Events: events,
			Total:  len(events),
		},
	})
}

// handleStreamEvents pushes playback events as server-sent events until the
// client goes away.
func (s *Server) handleStreamEvents(c *gin.Context) {
	events, release := s.events.Subscribe()
	defer release()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("playback", ev)
			return true
		}
	})
}
