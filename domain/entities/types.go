package entities

import (
	"strings"
)

// TypeTag names a value type that can cross the extension boundary.
type TypeTag string

const (
	// TypeVoid is only valid as a result: the function returns nothing.
	TypeVoid TypeTag = "void"
	// TypeBool is a C bool / wasm i32 holding 0 or 1.
	TypeBool TypeTag = "bool"
	// TypeI32 is int32_t.
	TypeI32 TypeTag = "i32"
	// TypeI64 is int64_t.
	TypeI64 TypeTag = "i64"
	// TypeU32 is uint32_t.
	TypeU32 TypeTag = "u32"
	// TypeU64 is uint64_t.
	TypeU64 TypeTag = "u64"
	// TypeF32 is float.
	TypeF32 TypeTag = "f32"
	// TypeF64 is double.
	TypeF64 TypeTag = "f64"
	// TypeString is a NUL terminated const char* for native artifacts and a
	// ptr/len pair in guest memory for wasm artifacts.
	TypeString TypeTag = "string"
	// TypeBytes is an input buffer (void*) for native artifacts and a ptr/len
	// pair in guest memory for wasm artifacts.
	TypeBytes TypeTag = "bytes"
	// TypePtr is an opaque pointer-sized handle (uintptr).
	TypePtr TypeTag = "ptr"
)

// AllTypeTags lists every known tag in declaration order.
var AllTypeTags = []TypeTag{
	TypeVoid, TypeBool, TypeI32, TypeI64, TypeU32, TypeU64,
	TypeF32, TypeF64, TypeString, TypeBytes, TypePtr,
}

// Valid reports whether t is a known tag. The empty tag is treated as void.
func (t TypeTag) Valid() bool {
	if t == "" {
		return true
	}
	for _, known := range AllTypeTags {
		if t == known {
			return true
		}
	}
	return false
}

// ValidParam reports whether t may appear in a parameter list.
func (t TypeTag) ValidParam() bool {
	return t != "" && t != TypeVoid && t.Valid()
}

// OrVoid normalizes the empty tag to TypeVoid.
func (t TypeTag) OrVoid() TypeTag {
	if t == "" {
		return TypeVoid
	}
	return t
}

// IsInteger reports whether t is one of the fixed width integer tags.
func (t TypeTag) IsInteger() bool {
	switch t {
	case TypeI32, TypeI64, TypeU32, TypeU64:
		return true
	}
	return false
}

// IsFloat reports whether t is f32 or f64.
func (t TypeTag) IsFloat() bool {
	return t == TypeF32 || t == TypeF64
}

// Signature is the parameter and result shape of an exported function.
type Signature struct {
	Params []TypeTag `json:"params" yaml:"params"`
	Result TypeTag   `json:"result" yaml:"result"`
}

// String renders the signature as result(param,param).
func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = string(p)
	}
	return string(s.Result.OrVoid()) + "(" + strings.Join(params, ",") + ")"
}

// Equal reports whether two signatures have the same shape.
func (s Signature) Equal(other Signature) bool {
	if s.Result.OrVoid() != other.Result.OrVoid() || len(s.Params) != len(other.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}
