package api

import (
	"time"

	"lamp/device"
)

// DispatchRequest is the body of POST /actuators/:id/dispatch.
type DispatchRequest struct {
	Event   string `json:"event" binding:"required"`
	Payload any    `json:"payload"`
}

// StopRequest is optional; a missing or zero timeout uses the server default.
type StopRequest struct {
	TimeoutSeconds float64 `json:"timeout_seconds"`
}

// ActuatorListResponse lists actuator statuses.
type ActuatorListResponse struct {
	Actuators []device.Status `json:"actuators"`
	Total     int             `json:"total"`
}

type RecordingListResponse struct {
	ActuatorID string   `json:"actuator_id"`
	Recordings []string `json:"recordings"`
	Total      int      `json:"total"`
}

// TelemetryResponse pairs the observed state with the last commanded one.
type TelemetryResponse struct {
	ActuatorID string       `json:"actuator_id"`
	Timestamp  time.Time    `json:"timestamp"`
	Observed   device.State `json:"observed"`
	Commanded  device.State `json:"commanded"`
}

type SystemStatusResponse struct {
	TotalActuators   int                      `json:"total_actuators"`
	RunningActuators int                      `json:"running_actuators"`
	SupportedModels  []string                 `json:"supported_models"`
	Actuators        map[string]device.Status `json:"actuators"`
	Uptime           string                   `json:"uptime"`
}

type SupportedModelsResponse struct {
	Models []string `json:"models"`
	Total  int      `json:"total"`
}

type EventListResponse struct {
	Events []EventRecord `json:"events"`
	Total  int           `json:"total"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}
