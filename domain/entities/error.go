package entities

import (
	"fmt"
	"strings"
)

// ErrorDetail is the serializable form of a bridge failure, used by the CLI
// and by anything that reports errors across a process boundary.
type ErrorDetail struct {
	// Wrapped is the cause, when the cause is itself structured.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	// Kind is the error kind, e.g. "artifact_not_found" or "native_call_failure".
	Kind string `json:"kind"`

	// Domain tags the layer the failure originated in: loader, resolver,
	// manifest, native or wasm.
	Domain string `json:"domain,omitempty"`

	// Module is the module name, when known.
	Module string `json:"module,omitempty"`

	// Operation is the operation being called, when the failure is per call.
	Operation string `json:"operation,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Fatal is set for load-time failures that end the module's lifetime.
	Fatal bool `json:"fatal,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, 4)
	if e.Module != "" {
		parts = append(parts, e.Module)
	}
	if e.Operation != "" {
		parts = append(parts, e.Operation)
	}
	if e.Kind != "" {
		parts = append(parts, e.Kind)
	}
	parts = append(parts, e.Message)
	msg := strings.Join(parts, ": ")
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// NewErrorDetail creates an ErrorDetail of the given kind.
func NewErrorDetail(kind, message string) *ErrorDetail {
	return &ErrorDetail{Kind: kind, Message: message}
}
