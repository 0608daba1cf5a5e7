package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"lamp/device"
	"lamp/logging"
)

var logger = logging.New("api")

// Server is the HTTP control surface of one lamp.
type Server struct {
	manager     *device.Manager
	events      *EventHub
	stopTimeout time.Duration
	startTime   time.Time
	version     string
}

// NewServer serves the actuators in manager. A nil hub gets a private one.
func NewServer(manager *device.Manager, events *EventHub, stopTimeout time.Duration) *Server {
	if events == nil {
		events = NewEventHub(defaultEventHistory)
	}
	return &Server{
		manager:     manager,
		events:      events,
		stopTimeout: stopTimeout,
		startTime:   time.Now(),
		version:     "1.0.0",
	}
}

// SetupRoutes registers the /api/v1 routes on r.
func (s *Server) SetupRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	{
		actuators := v1.Group("/actuators")
		{
			actuators.GET("", s.handleGetActuators)
			actuators.GET("/:id", s.handleGetActuator)

			actuatorRoutes := actuators.Group("/:id")
			{
				actuatorRoutes.POST("/dispatch", s.handleDispatch)
				actuatorRoutes.POST("/start", s.handleStart)
				actuatorRoutes.POST("/stop", s.handleStop)
				actuatorRoutes.GET("/recordings", s.handleGetRecordings)
				actuatorRoutes.GET("/telemetry", s.handleGetTelemetry)
			}
		}

		system := v1.Group("/system")
		{
			system.GET("/models", s.handleGetSupportedModels)
			system.GET("/status", s.handleGetSystemStatus)
			system.GET("/health", s.handleHealthCheck)
			system.GET("/events", s.handleGetEvents)
			system.GET("/events/stream", s.handleStreamEvents)
		}
	}
}
