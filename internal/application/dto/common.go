package dto

// ErrorResponse cuerpo de error HTTP. Code es estable para el cliente; Message indica
// qué precondición falló.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// HealthResponse cuerpo de GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}
