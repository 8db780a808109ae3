package api

// Response status values.
const (
	statusOK        = "ok"
	statusProcessed = "processed"
	statusSkipped   = "skipped"
	statusPending   = "pending"
)

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// ValidationResponse answers the delivery-service subscription handshake.
type ValidationResponse struct {
	ValidationResponse string `json:"validationResponse"`
}

// SkipResponse reports an event that needed no processing.
type SkipResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Blob   string `json:"blob,omitempty"`
}

// ProcessedResponse reports a completed pipeline run.
type ProcessedResponse struct {
	Status    string            `json:"status"`
	Blob      string            `json:"blob"`
	AltText   map[string]string `json:"altText"`
	Sidecar   string            `json:"sidecar"`
	Languages []string          `json:"languages"`
	Copied    bool              `json:"copied"`
}

// PendingResponse acknowledges a request that carried nothing to process.
type PendingResponse struct {
	Status string `json:"status"`
}

// LoginResponse is the POST /login body.
type LoginResponse struct {
	Status       string `json:"status"`
	SessionToken string `json:"session_token"`
	TenantID     string `json:"tenant_id"`
	UserID       string `json:"user_id"`
	ExpiresIn    int    `json:"expires_in"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
