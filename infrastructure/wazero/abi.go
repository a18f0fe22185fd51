package wazero

import (
	"fmt"
	"math"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/extbridge/domain/entities"
)

const (
	allocateExport   = "allocate"
	deallocateExport = "deallocate"
	initializeExport = "_initialize"
	startExport      = "_start"
)

// abiExports are part of the calling convention, never operations.
var abiExports = map[string]bool{
	allocateExport:   true,
	deallocateExport: true,
	initializeExport: true,
	startExport:      true,
}

// lowerParams returns the wasm parameter types tags lower to.
func lowerParams(tags []entities.TypeTag) ([]api.ValueType, error) {
	var out []api.ValueType
	for _, tag := range tags {
		switch tag {
		case entities.TypeBool, entities.TypeI32, entities.TypeU32, entities.TypePtr:
			out = append(out, api.ValueTypeI32)
		case entities.TypeI64, entities.TypeU64:
			out = append(out, api.ValueTypeI64)
		case entities.TypeF32:
			out = append(out, api.ValueTypeF32)
		case entities.TypeF64:
			out = append(out, api.ValueTypeF64)
		case entities.TypeString, entities.TypeBytes:
			out = append(out, api.ValueTypeI32, api.ValueTypeI32)
		default:
			return nil, fmt.Errorf("unexpected parameter type: %q", tag)
		}
	}
	return out, nil
}

// lowerResult returns the wasm result types of tag.
func lowerResult(tag entities.TypeTag) ([]api.ValueType, error) {
	switch tag.OrVoid() {
	case entities.TypeVoid:
		return nil, nil
	case entities.TypeString, entities.TypeBytes:
		return []api.ValueType{api.ValueTypeI64}, nil
	}
	return lowerParams([]entities.TypeTag{tag})
}

// liftDefinition derives an operation from an export. Every value is taken
// at face value: i32 results as i32, never as a packed pointer.
func liftDefinition(name string, def api.FunctionDefinition) (entities.Operation, bool) {
	op := entities.Operation{Name: name}
	for _, vt := range def.ParamTypes() {
		tag, ok := liftType(vt)
		if !ok {
			return op, false
		}
		op.Params = append(op.Params, tag)
	}
	switch results := def.ResultTypes(); len(results) {
	case 0:
	case 1:
		tag, ok := liftType(results[0])
		if !ok {
			return op, false
		}
		op.Result = tag
	default:
		return op, false
	}
	return op, true
}

func liftType(vt api.ValueType) (entities.TypeTag, bool) {
	switch vt {
	case api.ValueTypeI32:
		return entities.TypeI32, true
	case api.ValueTypeI64:
		return entities.TypeI64, true
	case api.ValueTypeF32:
		return entities.TypeF32, true
	case api.ValueTypeF64:
		return entities.TypeF64, true
	}
	return "", false
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// wasmSignature renders value types as result(param,param).
func wasmSignature(params, results []api.ValueType) string {
	names := func(vts []api.ValueType) string {
		s := make([]string, len(vts))
		for i, vt := range vts {
			s[i] = api.ValueTypeName(vt)
		}
		return strings.Join(s, ",")
	}
	result := names(results)
	if result == "" {
		result = "void"
	}
	return result + "(" + names(params) + ")"
}

// encodeScalar lowers a non-buffer argument to its stack representation.
func encodeScalar(tag entities.TypeTag, v any) (uint64, error) {
	switch tag {
	case entities.TypeBool:
		if b, ok := v.(bool); ok {
			if b {
				return 1, nil
			}
			return 0, nil
		}
	case entities.TypeI32:
		if n, ok := v.(int32); ok {
			return api.EncodeI32(n), nil
		}
	case entities.TypeU32:
		if n, ok := v.(uint32); ok {
			return api.EncodeU32(n), nil
		}
	case entities.TypePtr:
		if n, ok := v.(uintptr); ok {
			if uint64(n) > math.MaxUint32 {
				return 0, fmt.Errorf("pointer %#x exceeds wasm32 address space", n)
			}
			return uint64(n), nil
		}
	case entities.TypeI64:
		if n, ok := v.(int64); ok {
			return api.EncodeI64(n), nil
		}
	case entities.TypeU64:
		if n, ok := v.(uint64); ok {
			return n, nil
		}
	case entities.TypeF32:
		if f, ok := v.(float32); ok {
			return api.EncodeF32(f), nil
		}
	case entities.TypeF64:
		if f, ok := v.(float64); ok {
			return api.EncodeF64(f), nil
		}
	}
	return 0, fmt.Errorf("have %T, want %s", v, tag)
}

// decodeScalar lifts a non-buffer result.
func decodeScalar(tag entities.TypeTag, raw uint64) any {
	switch tag {
	case entities.TypeBool:
		return api.DecodeU32(raw) != 0
	case entities.TypeI32:
		return api.DecodeI32(raw)
	case entities.TypeU32:
		return api.DecodeU32(raw)
	case entities.TypePtr:
		return uintptr(api.DecodeU32(raw))
	case entities.TypeI64:
		return int64(raw)
	case entities.TypeU64:
		return raw
	case entities.TypeF32:
		return api.DecodeF32(raw)
	case entities.TypeF64:
		return api.DecodeF64(raw)
	}
	return nil
}
