package api

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lamp/define"
	"lamp/device"
)

func (s *Server) handleGetActuators(c *gin.Context) {
	actuators := s.manager.List()

	statuses := make([]device.Status, 0, len(actuators))
	for _, a := range actuators {
		statuses = append(statuses, a.Status())
	}

	c.JSON(http.StatusOK, define.ApiResponse{
		Status: "success",
		Data: ActuatorListResponse{
			Actuators: statuses,
			Total:     len(statuses),
		},
	})
}

func (s *Server) handleGetActuator(c *gin.Context) {
	a, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, define.ApiResponse{
		Status: "success",
		Data:   a.Status(),
	})
}

// handleDispatch queues an event. The request returns as soon as the event
// is in the actuator's inbox; it does not wait for playback.
func (s *Server) handleDispatch(c *gin.Context) {
	a, ok := s.lookup(c)
	if !ok {
		return
	}

	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, define.ApiResponse{
			Status: "error",
			Error:  "invalid dispatch request: " + err.Error(),
		})
		return
	}

	if !a.Dispatch(req.Event, req.Payload) {
		status := a.Status()
		if !slices.Contains(status.Events, req.Event) {
			c.JSON(http.StatusBadRequest, define.ApiResponse{
				Status: "error",
				Error:  "unknown event " + req.Event + " for actuator " + a.ID(),
			})
			return
		}
		c.JSON(http.StatusConflict, define.ApiResponse{
			Status: "error",
			Error:  "actuator " + a.ID() + " is " + status.State.String(),
		})
		return
	}

	c.JSON(http.StatusAccepted, define.ApiResponse{
		Status:  "success",
		Message: "accepted",
		Data:    map[string]any{"actuator_id": a.ID(), "event": req.Event},
	})
}

func (s *Server) handleStart(c *gin.Context) {
	a, ok := s.lookup(c)
	if !ok {
		return
	}

	if err := a.Start(); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, device.ErrConnection) {
			code = http.StatusBadGateway
		}
		c.JSON(code, define.ApiResponse{
			Status: "error",
			Error:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, define.ApiResponse{
		Status:  "success",
		Message: "actuator " + a.ID() + " started",
		Data:    a.Status(),
	})
}

func (s *Server) handleStop(c *gin.Context) {
	a, ok := s.lookup(c)
	if !ok {
		return
	}

	var req StopRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, define.ApiResponse{
			Status: "error",
			Error:  "invalid stop request: " + err.Error(),
		})
		return
	}
	timeout := s.stopTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds * float64(time.Second))
	}

	if err := a.Stop(timeout); err != nil {
		// The service is stopped either way; report what went wrong on the way.
		logger.With(zap.String("actuator", a.ID()), zap.Error(err)).Warn("Actuator stopped with errors")
		c.JSON(http.StatusInternalServerError, define.ApiResponse{
			Status: "error",
			Error:  err.Error(),
			Data:   a.Status(),
		})
		return
	}

	c.JSON(http.StatusOK, define.ApiResponse{
		Status:  "success",
		Message: "actuator " + a.ID() + " stopped",
		Data:    a.Status(),
	})
}

func (s *Server) handleGetRecordings(c *gin.Context) {
	a, ok := s.lookup(c)
	if !ok {
		return
	}

	names, err := a.Recordings()
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, device.ErrUnsupported) {
			code = http.StatusBadRequest
		}
		c.JSON(code, define.ApiResponse{
			Status: "error",
			Error:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, define.ApiResponse{
		Status: "success",
		Data: RecordingListResponse{
			ActuatorID: a.ID(),
			Recordings: names,
			Total:      len(names),
		},
	})
}

func (s *Server) handleGetTelemetry(c *gin.Context) {
	a, ok := s.lookup(c)
	if !ok {
		return
	}

	observed, err := a.Observe()
	if err != nil {
		c.JSON(http.StatusBadGateway, define.ApiResponse{
			Status: "error",
			Error:  "observe " + a.ID() + ": " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, define.ApiResponse{
		Status: "success",
		Data: TelemetryResponse{
			ActuatorID: a.ID(),
			Timestamp:  time.Now(),
			Observed:   observed,
			Commanded:  a.Status().LastState,
		},
	})
}

func (s *Server) lookup(c *gin.Context) (device.Actuator, bool) {
	a, err := s.manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, define.ApiResponse{
			Status: "error",
			Error:  err.Error(),
		})
		return nil, false
	}
	return a, true
}
