package native

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/reglet-dev/extbridge/domain/entities"
	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/domain/ports"
)

type library struct {
	so        *sharedLibrary
	logger    *slog.Logger
	lastError func() string
	path      string
}

var _ ports.Library = (*library)(nil)

// Initialize resolves the entry point and runs it. An i32 entry point
// returning non-zero fails the load. Each entry point of a library runs at
// most once per process; later calls observe the first outcome.
func (l *library) Initialize(ctx context.Context, entryPoint string, manifest *entities.Manifest) error {
	if manifest == nil {
		manifest = &entities.Manifest{}
	}
	addr, err := l.so.lookupSymbol(entryPoint)
	if err != nil {
		return errs.Wrap(err, errs.KindEntryPointNotFound, errs.DomainNative, "entry point %q not exported by %s", entryPoint, l.path)
	}

	if manifest.LastError != "" {
		errAddr, err := l.so.lookupSymbol(manifest.LastError)
		if err != nil {
			return errs.Wrap(err, errs.KindSymbolSignatureMismatch, errs.DomainNative, "last_error symbol %q not exported", manifest.LastError)
		}
		errFn, err := makeForeignFunc(entities.Signature{Result: entities.TypeString}, errAddr)
		if err != nil {
			return errs.Wrap(err, errs.KindSymbolSignatureMismatch, errs.DomainNative, "last_error symbol %q", manifest.LastError)
		}
		l.lastError = func() string {
			out, err := invoke(errFn, nil)
			if err != nil {
				return ""
			}
			s, _ := out.(string)
			return s
		}
	}

	sig := entities.Signature{Result: manifest.Init.Result.OrVoid()}
	var args []any
	if manifest.Init.PassPath {
		sig.Params = []entities.TypeTag{entities.TypeString}
		args = []any{filepath.Dir(l.path)}
	}
	initFn, err := makeForeignFunc(sig, addr)
	if err != nil {
		return errs.Wrap(err, errs.KindSymbolSignatureMismatch, errs.DomainNative, "entry point %q", entryPoint)
	}

	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainNative, "entry point %q not invoked", entryPoint)
	}

	ran := false
	_, err = entryPoints.Do(entryPointKey(l.path, entryPoint), func() (*sharedLibrary, error) {
		ran = true
		l.logger.DebugContext(ctx, "native: invoking entry point", "symbol", entryPoint, "signature", sig.String())
		out, msg, err := l.callWithLastError(initFn, args, entities.FailNonZero)
		if err != nil {
			return nil, errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainNative, "entry point %q failed", entryPoint)
		}
		if msg != "" || entities.FailNonZero.Failed(out) {
			return nil, errs.New(errs.KindNativeInitFailure, errs.DomainNative, "entry point %q returned %v%s", entryPoint, out, suffix(msg))
		}
		pin, err := openSharedLibrary(l.path)
		if err != nil {
			return nil, errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainNative, "cannot retain %s", l.path)
		}
		return pin, nil
	})
	if !ran {
		l.logger.DebugContext(ctx, "native: entry point already run in this process", "symbol", entryPoint, "path", l.path)
	}
	return err
}

// Exports returns nil: a shared library's symbol table carries no types.
func (l *library) Exports() []entities.Operation {
	return nil
}

// Bind resolves op's symbol and binds it with the declared signature.
func (l *library) Bind(op entities.Operation) (ports.Function, error) {
	addr, err := l.so.lookupSymbol(op.SymbolName())
	if err != nil {
		return nil, errs.Wrap(err, errs.KindSymbolSignatureMismatch, errs.DomainNative, "symbol %q not exported", op.SymbolName())
	}
	fn, err := makeForeignFunc(op.Signature(), addr)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindSymbolSignatureMismatch, errs.DomainNative, "symbol %q", op.SymbolName())
	}

	policy := op.FailWhen
	return func(ctx context.Context, args []any) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(err, errs.KindNativeCallFailure, errs.DomainNative, "not invoked")
		}
		out, msg, err := l.callWithLastError(fn, args, policy)
		if err != nil {
			return nil, errs.Wrap(err, errs.KindNativeCallFailure, errs.DomainNative, "call aborted")
		}
		if policy.Failed(out) {
			return out, errs.New(errs.KindNativeCallFailure, errs.DomainNative, "returned error sentinel %v%s", out, suffix(msg))
		}
		return out, nil
	}, nil
}

// Reentrant is true: whether a shared library tolerates concurrent calls is
// up to its manifest.
func (l *library) Reentrant() bool {
	return true
}

func (l *library) Close(context.Context) error {
	return l.so.close()
}

// callWithLastError runs fn and, when the result fails policy, reads the
// last_error message on the same OS thread so thread-local error state on the
// C side is still intact.
func (l *library) callWithLastError(fn foreignFunc, args []any, policy entities.FailurePolicy) (any, string, error) {
	if l.lastError == nil {
		out, err := invoke(fn, args)
		return out, "", err
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	out, err := invoke(fn, args)
	if err != nil || !policy.Failed(out) {
		return out, "", err
	}
	return out, l.lastError(), nil
}

// invoke converts a panic on the Go side of the call into an error. Faults
// inside foreign code are not recoverable and terminate the process.
func invoke(fn foreignFunc, args []any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(args)
}

func suffix(msg string) string {
	if msg == "" {
		return ""
	}
	return ": " + msg
}
