package host

import (
	"context"
	"sync"

	"github.com/reglet-dev/extbridge/domain/entities"
	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/domain/ports"
)

type binding struct {
	op entities.Operation
	fn ports.Function
}

// Module is a handle to a loaded extension. Handles are only produced by a
// completed Load; the zero Module is not loaded and rejects every call.
type Module struct {
	spec     entities.ModuleSpec
	artifact entities.Artifact
	lib      ports.Library
	ops      map[string]binding
	order    []entities.Operation
	invoke   Invoker

	// sem serializes calls into non-reentrant modules.
	sem chan struct{}

	// life guards closed against in-flight calls.
	life   sync.RWMutex
	closed bool
}

// Name returns the module name.
func (m *Module) Name() string {
	if m == nil {
		return ""
	}
	return m.spec.Name
}

// Operations returns the bound operations in declaration order.
func (m *Module) Operations() []entities.Operation {
	if m == nil {
		return nil
	}
	return append([]entities.Operation(nil), m.order...)
}

// Info describes the handle.
func (m *Module) Info() entities.ModuleInfo {
	if m == nil {
		return entities.ModuleInfo{}
	}
	info := entities.ModuleInfo{
		Name:       m.spec.Name,
		SearchDir:  m.spec.SearchDir,
		EntryPoint: m.spec.Entry(),
		Artifact:   m.artifact,
		Reentrant:  m.sem == nil && m.lib != nil,
		Operations: m.Operations(),
	}
	info.State = m.state()
	return info
}

func (m *Module) state() entities.LoadState {
	if m == nil || m.lib == nil {
		return entities.StateUnloaded
	}
	m.life.RLock()
	defer m.life.RUnlock()
	if m.closed {
		return entities.StateClosed
	}
	return entities.StateLoaded
}

// Call invokes op with args converted to the declared parameter types.
//
// Unknown operations and arguments that do not fit the signature fail with
// SymbolSignatureMismatch without entering the module. Failures reported by
// the module fail with NativeCallFailure. Neither ends the module's lifetime.
func (m *Module) Call(ctx context.Context, op string, args ...any) (any, error) {
	if m == nil || m.lib == nil {
		return nil, errs.New(errs.KindNotLoaded, errs.DomainLoader, "module handle was not produced by Load").WithOperation(op)
	}
	b, ok := m.ops[op]
	if !ok {
		return nil, errs.New(errs.KindSymbolSignatureMismatch, errs.DomainLoader,
			"no operation %q", op).WithModule(m.spec.Name)
	}
	coerced, err := coerceArgs(b.op, args)
	if err != nil {
		return nil, errs.Attribute(err, errs.KindSymbolSignatureMismatch, errs.DomainLoader, m.spec.Name, op)
	}

	out, err := m.invoke(ctx, &Invocation{Module: m.spec.Name, Operation: op, Args: coerced})
	if err != nil {
		return out, errs.Attribute(err, errs.KindNativeCallFailure, errs.DomainLoader, m.spec.Name, op)
	}
	return out, nil
}

// dispatch is the innermost Invoker: it holds the handle open for the call
// and serializes it when the module is not reentrant.
func (m *Module) dispatch(ctx context.Context, inv *Invocation) (any, error) {
	m.life.RLock()
	defer m.life.RUnlock()
	if m.closed {
		return nil, errs.New(errs.KindNotLoaded, errs.DomainLoader, "loader closed")
	}

	if m.sem != nil {
		select {
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
		case <-ctx.Done():
			return nil, errs.Wrap(ctx.Err(), errs.KindNativeCallFailure, errs.DomainLoader, "not invoked")
		}
	}
	return m.ops[inv.Operation].fn(ctx, inv.Args)
}

func (m *Module) close(ctx context.Context) error {
	m.life.Lock()
	defer m.life.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.lib.Close(ctx)
}

func coerceArgs(op entities.Operation, args []any) ([]any, error) {
	if len(args) != len(op.Params) {
		return nil, errs.New(errs.KindSymbolSignatureMismatch, errs.DomainLoader,
			"%s takes %d arguments, got %d", op.Signature(), len(op.Params), len(args))
	}
	out := make([]any, len(args))
	for i, tag := range op.Params {
		v, err := entities.Coerce(tag, args[i])
		if err != nil {
			return nil, errs.Wrap(err, errs.KindSymbolSignatureMismatch, errs.DomainLoader, "argument %d", i)
		}
		out[i] = v
	}
	return out, nil
}
