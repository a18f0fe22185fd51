package hostfuncs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorResponse_ToJSON(t *testing.T) {
	got := NewNotFoundError("foo").ToJSON()
	assert.JSONEq(t, `{"error":"NOT_FOUND","message":"unknown host function: foo","code":404}`, string(got))
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  ErrorResponse
		kind string
		code int
	}{
		{"validation", NewValidationError("bad"), "VALIDATION_ERROR", 400},
		{"denied", NewDeniedError("no"), "DENIED", 403},
		{"not found", NewNotFoundError("x"), "NOT_FOUND", 404},
		{"internal", NewInternalError("boom"), "INTERNAL_ERROR", 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Error)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestNewPanicError(t *testing.T) {
	tests := []struct {
		name       string
		panicValue any
		wantMsg    string
	}{
		{"string panic", "oops", "panic: oops"},
		{"error panic", errors.New("broken"), "panic: broken"},
		{"other panic", 42, "panic: 42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPanicError(tt.panicValue)
			assert.Equal(t, "INTERNAL_ERROR", err.Error)
			assert.Equal(t, tt.wantMsg, err.Message)
			assert.Equal(t, 500, err.Code)
		})
	}
}
