package host

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errs "github.com/reglet-dev/extbridge/domain/errors"
)

// Invocation describes one call into a module. Args are already coerced to
// the declared parameter types.
type Invocation struct {
	Module    string
	Operation string
	Args      []any
}

// Invoker performs an Invocation.
type Invoker func(ctx context.Context, inv *Invocation) (any, error)

// Interceptor wraps an Invoker.
type Interceptor func(next Invoker) Invoker

func chain(interceptors []Interceptor, final Invoker) Invoker {
	for i := len(interceptors) - 1; i >= 0; i-- {
		final = interceptors[i](final)
	}
	return final
}

// RecoveryInterceptor turns a panic raised on the Go side of a call into a
// NativeCallFailure. Faults inside foreign code cannot be recovered.
func RecoveryInterceptor() Interceptor {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, inv *Invocation) (out any, err error) {
			defer func() {
				if r := recover(); r != nil {
					out = nil
					err = errs.Wrap(fmt.Errorf("panic: %v", r), errs.KindNativeCallFailure, errs.DomainLoader, "call aborted")
				}
			}()
			return next(ctx, inv)
		}
	}
}

// LoggingInterceptor logs calls at debug level and failures at warn level.
func LoggingInterceptor(logger *slog.Logger) Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Invoker) Invoker {
		return func(ctx context.Context, inv *Invocation) (any, error) {
			start := time.Now()
			out, err := next(ctx, inv)
			attrs := []any{"module", inv.Module, "operation", inv.Operation, "duration", time.Since(start)}
			if err != nil {
				logger.WarnContext(ctx, "host: call failed", append(attrs, "error", err)...)
				return out, err
			}
			logger.DebugContext(ctx, "host: call completed", attrs...)
			return out, nil
		}
	}
}
