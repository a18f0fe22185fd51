package hostfuncs

import (
	"encoding/json"
	"fmt"
)

// ErrorResponse is returned to the guest instead of trapping it.
type ErrorResponse struct {
	// Error is a machine readable identifier such as "NOT_FOUND".
	Error string `json:"error"`

	Message string `json:"message"`

	Code int `json:"code"`
}

// ToJSON serializes the response.
func (e ErrorResponse) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// NewValidationError reports a malformed request.
func NewValidationError(message string) ErrorResponse {
	return ErrorResponse{Error: "VALIDATION_ERROR", Message: message, Code: 400}
}

// NewDeniedError reports a request the host refuses to serve.
func NewDeniedError(message string) ErrorResponse {
	return ErrorResponse{Error: "DENIED", Message: message, Code: 403}
}

// NewNotFoundError reports an unknown callback name.
func NewNotFoundError(name string) ErrorResponse {
	return ErrorResponse{Error: "NOT_FOUND", Message: "unknown host function: " + name, Code: 404}
}

// NewInternalError reports a host side failure.
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{Error: "INTERNAL_ERROR", Message: message, Code: 500}
}

// NewPanicError reports a recovered panic.
func NewPanicError(v any) ErrorResponse {
	var msg string
	switch p := v.(type) {
	case error:
		msg = p.Error()
	case string:
		msg = p
	default:
		msg = fmt.Sprint(p)
	}
	return NewInternalError("panic: " + msg)
}
