package hostfuncs

import (
	"context"
	"log/slog"
	"time"
)

// Middleware wraps a ByteHandler.
type Middleware func(next ByteHandler) ByteHandler

// PanicRecoveryMiddleware turns a panicking handler into an INTERNAL_ERROR
// response. A panic escaping into wazero would otherwise trap the guest.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = NewPanicError(r).ToJSON(), nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware logs every callback at debug level and failures at
// error level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			attrs := []any{"function", "unknown"}
			if hc, ok := ctx.(HostContext); ok {
				attrs = []any{"function", hc.FunctionName(), "module", hc.ModuleName()}
			}
			start := time.Now()
			resp, err := next(ctx, payload)
			attrs = append(attrs, "duration", time.Since(start), "request_bytes", len(payload))
			if err != nil {
				logger.ErrorContext(ctx, "hostfuncs: callback failed", append(attrs, "error", err)...)
				return resp, err
			}
			logger.DebugContext(ctx, "hostfuncs: callback served", attrs...)
			return resp, nil
		}
	}
}
