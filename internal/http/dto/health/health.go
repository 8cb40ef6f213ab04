package health

import "time"

// HealthStatus is the state of one component.
type HealthStatus struct {
	Status  string `json:"status"` // ok | error | disabled
	Message string `json:"message,omitempty"`
}

// HealthResponse is the response for GET /readyz.
type HealthResponse struct {
	Status      string                  `json:"status"` // ready | degraded | unavailable
	Version     string                  `json:"version,omitempty"`
	ActiveKeyID string                  `json:"active_kid,omitempty"`
	Components  map[string]HealthStatus `json:"components"`
	Timestamp   time.Time               `json:"timestamp"`
}
