package native

import (
	"fmt"
	"reflect"
	"runtime"
	"unsafe"

	"github.com/reglet-dev/extbridge/domain/entities"
)

// foreignFunc invokes a C ABI function with arguments already coerced to the
// Go types of the declared parameter tags.
type foreignFunc func(args []any) (any, error)

func paramType(tag entities.TypeTag) (reflect.Type, error) {
	switch tag {
	case entities.TypeBool:
		return reflect.TypeFor[bool](), nil
	case entities.TypeI32:
		return reflect.TypeFor[int32](), nil
	case entities.TypeI64:
		return reflect.TypeFor[int64](), nil
	case entities.TypeU32:
		return reflect.TypeFor[uint32](), nil
	case entities.TypeU64:
		return reflect.TypeFor[uint64](), nil
	case entities.TypeF32:
		return reflect.TypeFor[float32](), nil
	case entities.TypeF64:
		return reflect.TypeFor[float64](), nil
	case entities.TypeString:
		return reflect.TypeFor[string](), nil
	case entities.TypeBytes:
		return reflect.TypeFor[unsafe.Pointer](), nil
	case entities.TypePtr:
		return reflect.TypeFor[uintptr](), nil
	}
	return nil, fmt.Errorf("unexpected parameter type: %q", tag)
}

func resultTypes(tag entities.TypeTag) ([]reflect.Type, error) {
	switch tag.OrVoid() {
	case entities.TypeVoid:
		return nil, nil
	case entities.TypeBytes:
		// A bare pointer carries no length.
		return nil, fmt.Errorf("bytes cannot be returned across the C ABI, use ptr")
	}
	t, err := paramType(tag)
	if err != nil {
		return nil, fmt.Errorf("unexpected return type: %q", tag)
	}
	return []reflect.Type{t}, nil
}

// makeForeignFunc builds a callable for sig at addr. The function type is
// assembled with reflection and bound by purego, which handles the C calling
// convention including NUL-terminated copies of string arguments.
func makeForeignFunc(sig entities.Signature, addr uintptr) (fn foreignFunc, err error) {
	returnTypes, err := resultTypes(sig.Result)
	if err != nil {
		return nil, err
	}
	paramTypes := make([]reflect.Type, len(sig.Params))
	for i, p := range sig.Params {
		if paramTypes[i], err = paramType(p); err != nil {
			return nil, err
		}
	}

	funcType := reflect.FuncOf(paramTypes, returnTypes, false)
	// registerFunc needs a pointer to a function variable.
	fnPtr := reflect.New(funcType)

	defer func() {
		// purego panics on signatures it cannot express on this architecture.
		if r := recover(); r != nil {
			fn, err = nil, fmt.Errorf("signature %s is not supported: %v", sig, r)
		}
	}()
	registerFunc(fnPtr.Interface(), addr)

	return func(args []any) (any, error) {
		if len(args) != len(paramTypes) {
			return nil, fmt.Errorf("expected %d args, got %d", len(paramTypes), len(args))
		}
		values := make([]reflect.Value, len(args))
		// Pin buffers for the duration of the call so the collector does not
		// move them under the C side.
		var pinner runtime.Pinner
		defer pinner.Unpin()
		for i, arg := range args {
			switch v := arg.(type) {
			case []byte:
				var ptr unsafe.Pointer
				if len(v) > 0 {
					ptr = unsafe.Pointer(unsafe.SliceData(v))
					pinner.Pin(ptr)
				}
				values[i] = reflect.ValueOf(ptr)
			default:
				values[i] = reflect.ValueOf(v)
			}
			if values[i].Type() != paramTypes[i] {
				return nil, fmt.Errorf("argument %d: have %s, want %s", i, values[i].Type(), paramTypes[i])
			}
		}
		results := fnPtr.Elem().Call(values)
		if len(results) == 0 {
			return nil, nil
		}
		return results[0].Interface(), nil
	}, nil
}
