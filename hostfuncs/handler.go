package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
)

// Callback is a typed host callback.
type Callback[Req any, Resp any] func(context.Context, Req) Resp

// ByteHandler accepts a JSON request and returns a JSON response. It is the
// form the wasm backend exports.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// NewJSONHandler adapts a typed Callback to a ByteHandler. An empty payload
// decodes as the zero request; a malformed one is answered with a
// VALIDATION_ERROR response.
func NewJSONHandler[Req any, Resp any](fn Callback[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return NewValidationError(fmt.Sprintf("failed to unmarshal request: %v", err)).ToJSON(), nil
			}
		}

		respBytes, err := json.Marshal(fn(ctx, req))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return respBytes, nil
	}
}
