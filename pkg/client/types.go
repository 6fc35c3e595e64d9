package client

// StartRequest represents the request body for starting a monitoring session
type StartRequest struct {
	ProcessName string `json:"process_name"`
}

// Status represents the monitor status returned by GET /status
type Status struct {
	Running     bool     `json:"running"`
	ProcessName *string  `json:"process_name"`
	CurrentFPS  *float64 `json:"current_fps"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
