package wazero

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/extbridge/domain/entities"
	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/domain/ports"
	"github.com/reglet-dev/extbridge/hostfuncs"
)

type library struct {
	runtime    wazero.Runtime
	compiled   wazero.CompiledModule
	module     api.Module
	logger     *slog.Logger
	name       string
	path       string
	entryPoint string
}

var _ ports.Library = (*library)(nil)

// Initialize runs _initialize when exported, then the entry point. A trap or
// a non-zero i32 result fails the load.
func (l *library) Initialize(ctx context.Context, entryPoint string, manifest *entities.Manifest) error {
	if manifest == nil {
		manifest = &entities.Manifest{}
	}
	l.entryPoint = entryPoint
	ctx = hostfuncs.WithModuleName(ctx, l.name)

	entry := l.module.ExportedFunction(entryPoint)
	if entry == nil {
		return errs.New(errs.KindEntryPointNotFound, errs.DomainWasm, "entry point %q not exported by %s", entryPoint, l.path)
	}

	var params []api.ValueType
	if manifest.Init.PassPath {
		params = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	}
	def := entry.Definition()
	results := def.ResultTypes()
	resultOK := len(results) == 0 || sameTypes(results, []api.ValueType{api.ValueTypeI32})
	if manifest.Init.Result == entities.TypeI32 {
		resultOK = len(results) == 1 && results[0] == api.ValueTypeI32
	}
	if !sameTypes(def.ParamTypes(), params) || !resultOK {
		return errs.New(errs.KindSymbolSignatureMismatch, errs.DomainWasm,
			"entry point %q is %s", entryPoint, wasmSignature(def.ParamTypes(), results))
	}

	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainWasm, "entry point %q not invoked", entryPoint)
	}

	if init := l.module.ExportedFunction(initializeExport); init != nil {
		if _, err := init.Call(ctx); err != nil {
			return errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainWasm, "%s trapped", initializeExport)
		}
	}

	var stack []uint64
	if manifest.Init.PassPath {
		dir := []byte(filepath.Dir(l.path))
		ptr, err := writeGuest(ctx, l.module, dir)
		if err != nil {
			return errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainWasm, "cannot pass artifact path")
		}
		stack = []uint64{api.EncodeU32(ptr), uint64(len(dir))}
	}

	l.logger.DebugContext(ctx, "wasm: invoking entry point", "symbol", entryPoint)
	out, err := entry.Call(ctx, stack...)
	if err != nil {
		return errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainWasm, "entry point %q trapped", entryPoint)
	}
	if len(out) == 1 {
		if rc := api.DecodeI32(out[0]); rc != 0 {
			return errs.New(errs.KindNativeInitFailure, errs.DomainWasm, "entry point %q returned %d", entryPoint, rc)
		}
	}
	return nil
}

// Exports lists every exported function with plain numeric types, sorted by
// name. The entry point and calling convention exports are left out.
func (l *library) Exports() []entities.Operation {
	defs := l.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		if abiExports[name] || name == l.entryPoint {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	ops := make([]entities.Operation, 0, len(names))
	for _, name := range names {
		if op, ok := liftDefinition(name, defs[name]); ok {
			ops = append(ops, op)
		}
	}
	return ops
}

// Bind checks op against the export's wasm signature.
func (l *library) Bind(op entities.Operation) (ports.Function, error) {
	symbol := op.SymbolName()
	fn := l.module.ExportedFunction(symbol)
	if fn == nil {
		return nil, errs.New(errs.KindSymbolSignatureMismatch, errs.DomainWasm, "symbol %q not exported", symbol)
	}

	params, err := lowerParams(op.Params)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindSymbolSignatureMismatch, errs.DomainWasm, "symbol %q", symbol)
	}
	results, err := lowerResult(op.Result)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindSymbolSignatureMismatch, errs.DomainWasm, "symbol %q", symbol)
	}
	def := fn.Definition()
	if !sameTypes(def.ParamTypes(), params) || !sameTypes(def.ResultTypes(), results) {
		return nil, errs.New(errs.KindSymbolSignatureMismatch, errs.DomainWasm,
			"symbol %q is %s, declared %s lowers to %s",
			symbol, wasmSignature(def.ParamTypes(), def.ResultTypes()), op.Signature(), wasmSignature(params, results))
	}
	if needsMemory(op) && l.module.ExportedFunction(allocateExport) == nil {
		return nil, errs.New(errs.KindSymbolSignatureMismatch, errs.DomainWasm,
			"symbol %q takes buffers but the module does not export %q", symbol, allocateExport)
	}

	return func(ctx context.Context, args []any) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(err, errs.KindNativeCallFailure, errs.DomainWasm, "not invoked")
		}
		ctx = hostfuncs.WithModuleName(ctx, l.name)
		return l.call(ctx, fn, op, args)
	}, nil
}

type allocation struct {
	ptr, size uint32
}

func (l *library) call(ctx context.Context, fn api.Function, op entities.Operation, args []any) (any, error) {
	if len(args) != len(op.Params) {
		return nil, errs.New(errs.KindNativeCallFailure, errs.DomainWasm, "expected %d args, got %d", len(op.Params), len(args))
	}

	var allocs []allocation
	defer func() { l.release(ctx, allocs) }()

	stack := make([]uint64, 0, len(args))
	for i, tag := range op.Params {
		switch tag {
		case entities.TypeString, entities.TypeBytes:
			buf, ok := bufferOf(args[i])
			if !ok {
				return nil, errs.New(errs.KindNativeCallFailure, errs.DomainWasm, "argument %d: have %T, want %s", i, args[i], tag)
			}
			ptr, err := writeGuest(ctx, l.module, buf)
			if err != nil {
				return nil, errs.Wrap(err, errs.KindNativeCallFailure, errs.DomainWasm, "argument %d", i)
			}
			allocs = append(allocs, allocation{ptr: ptr, size: uint32(len(buf))}) //nolint:gosec // G115: written above
			stack = append(stack, api.EncodeU32(ptr), uint64(len(buf)))
		default:
			v, err := encodeScalar(tag, args[i])
			if err != nil {
				return nil, errs.Wrap(err, errs.KindNativeCallFailure, errs.DomainWasm, "argument %d", i)
			}
			stack = append(stack, v)
		}
	}

	out, err := fn.Call(ctx, stack...)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindNativeCallFailure, errs.DomainWasm, "trapped")
	}

	result, err := l.lift(op.Result.OrVoid(), out)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindNativeCallFailure, errs.DomainWasm, "bad result")
	}
	if op.FailWhen.Failed(result) {
		return result, errs.New(errs.KindNativeCallFailure, errs.DomainWasm, "returned error sentinel %v", result)
	}
	return result, nil
}

func (l *library) lift(tag entities.TypeTag, out []uint64) (any, error) {
	if tag == entities.TypeVoid {
		return nil, nil
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no result")
	}
	switch tag {
	case entities.TypeString, entities.TypeBytes:
		ptr, length := unpackPtrLen(out[0])
		data, ok := l.module.Memory().Read(ptr, length)
		if !ok {
			return nil, fmt.Errorf("%d bytes at %#x are outside guest memory", length, ptr)
		}
		if tag == entities.TypeString {
			return string(data), nil
		}
		return append([]byte(nil), data...), nil
	}
	return decodeScalar(tag, out[0]), nil
}

// release hands argument buffers back when the guest exports deallocate.
func (l *library) release(ctx context.Context, allocs []allocation) {
	if len(allocs) == 0 {
		return
	}
	dealloc := l.module.ExportedFunction(deallocateExport)
	if dealloc == nil {
		return
	}
	for _, a := range allocs {
		if _, err := dealloc.Call(ctx, api.EncodeU32(a.ptr), api.EncodeU32(a.size)); err != nil {
			l.logger.WarnContext(ctx, "wasm: deallocate failed", "module", l.name, "error", err)
			return
		}
	}
}

// Reentrant is false: a wasm instance has a single linear memory and stack.
func (l *library) Reentrant() bool {
	return false
}

func (l *library) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
}

func needsMemory(op entities.Operation) bool {
	for _, p := range op.Params {
		if p == entities.TypeString || p == entities.TypeBytes {
			return true
		}
	}
	return false
}

func bufferOf(v any) ([]byte, bool) {
	switch b := v.(type) {
	case string:
		return []byte(b), true
	case []byte:
		return b, true
	}
	return nil, false
}
