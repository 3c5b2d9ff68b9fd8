package http

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Status  int    `json:"status" example:"200"`
	Message string `json:"message" example:"OK"`
	Data    any    `json:"data,omitempty"`
}

type ValidationError struct {
	Code    string         `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string         `json:"field,omitempty" example:"days"`
	Message string         `json:"message,omitempty" example:"days is required"`
	Params  map[string]any `json:"params,omitempty"`
}
