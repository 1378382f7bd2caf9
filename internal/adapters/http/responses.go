package http

// MessageResponse is a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is a standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RefreshResponse acknowledges an accepted background refresh.
type RefreshResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id,omitempty"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services,omitempty"`
}
