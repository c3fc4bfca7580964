// Package api defines the wire types of the chat service's HTTP surface.
package api

// ChatRequest is the POST /chat request body.
type ChatRequest struct {
	TenantID string `json:"tenant_id"`
	Question string `json:"question"`
}

// ChatResponse is the POST /chat success payload.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
