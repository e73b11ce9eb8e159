package model

// APIResponse is the envelope every BFF route answers with.
type APIResponse struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// ErrorResponse is the `{message, error}` failure body. Message is always present.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   any    `json:"error,omitempty"`
}

const InternalServerErrorMessage = "Internal Server Error"
