package entities

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		tag  TypeTag
		in   any
		want any
	}{
		{"int to i32", TypeI32, 2, int32(2)},
		{"float64 from json to i32", TypeI32, float64(3), int32(3)},
		{"json number to i64", TypeI64, json.Number("9000000000"), int64(9000000000)},
		{"string to i32", TypeI32, "-7", int32(-7)},
		{"hex string to u32", TypeU32, "0xff", uint32(255)},
		{"int to u64", TypeU64, 5, uint64(5)},
		{"int to f64", TypeF64, 2, float64(2)},
		{"string to f32", TypeF32, "1.5", float32(1.5)},
		{"f32 max", TypeF32, float64(math.MaxFloat32), float32(math.MaxFloat32)},
		{"f32 infinity", TypeF32, math.Inf(1), float32(math.Inf(1))},
		{"string to bool", TypeBool, "true", true},
		{"int to bool", TypeBool, 0, false},
		{"bytes to string", TypeString, []byte("abc"), "abc"},
		{"string to bytes", TypeBytes, "abc", []byte("abc")},
		{"nil to ptr", TypePtr, nil, uintptr(0)},
		{"int to ptr", TypePtr, 4096, uintptr(4096)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.tag, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerce_Errors(t *testing.T) {
	tests := []struct {
		name string
		tag  TypeTag
		in   any
	}{
		{"i32 overflow", TypeI32, int64(math.MaxInt32) + 1},
		{"negative unsigned", TypeU32, -1},
		{"u32 overflow", TypeU32, uint64(math.MaxUint32) + 1},
		{"f32 overflow", TypeF32, 1e300},
		{"f32 negative overflow", TypeF32, "-1e40"},
		{"fractional integer", TypeI64, 1.5},
		{"string for i32", TypeI32, "two"},
		{"int for string", TypeString, 3},
		{"void argument", TypeVoid, 1},
		{"map for bytes", TypeBytes, map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Coerce(tt.tag, tt.in)
			assert.Error(t, err)
		})
	}
}

func TestTypeTag(t *testing.T) {
	assert.True(t, TypeTag("").Valid())
	assert.True(t, TypeI32.ValidParam())
	assert.False(t, TypeVoid.ValidParam())
	assert.False(t, TypeTag("").ValidParam())
	assert.False(t, TypeTag("int").Valid())
	assert.Equal(t, TypeVoid, TypeTag("").OrVoid())
}

func TestSignature(t *testing.T) {
	add := Operation{Name: "add", Params: []TypeTag{TypeI32, TypeI32}, Result: TypeI32}
	assert.Equal(t, "i32(i32,i32)", add.Signature().String())
	assert.Equal(t, "void()", Operation{Name: "noop"}.Signature().String())

	assert.True(t, add.Signature().Equal(Signature{Params: []TypeTag{TypeI32, TypeI32}, Result: TypeI32}))
	assert.False(t, add.Signature().Equal(Signature{Params: []TypeTag{TypeI32}, Result: TypeI32}))
	assert.True(t, Signature{}.Equal(Signature{Result: TypeVoid}))
}

func TestFailurePolicy(t *testing.T) {
	tests := []struct {
		policy FailurePolicy
		result any
		failed bool
	}{
		{FailNever, int32(-1), false},
		{"", int32(-1), false},
		{FailNonZero, int32(0), false},
		{FailNonZero, int32(2), true},
		{FailNegative, int64(-1), true},
		{FailNegative, int64(0), false},
		{FailZero, uintptr(0), true},
		{FailZero, false, true},
		{FailZero, true, false},
		{FailEmpty, "", true},
		{FailEmpty, "ok", false},
		{FailEmpty, []byte{}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.failed, tt.policy.Failed(tt.result), "%s(%v)", tt.policy, tt.result)
	}

	assert.True(t, FailNegative.Applies(TypeI32))
	assert.False(t, FailNegative.Applies(TypeU32))
	assert.False(t, FailEmpty.Applies(TypeI32))
	assert.True(t, FailNever.Applies(TypeVoid))
	assert.False(t, FailurePolicy("sometimes").Valid())
}

func TestModuleSpec(t *testing.T) {
	spec := ModuleSpec{Name: "mymodule", SearchDir: "/ext"}
	assert.Equal(t, "Init_mymodule", spec.Entry())

	spec.EntryPoint = "custom_init"
	assert.Equal(t, "custom_init", spec.Entry())

	a := ModuleSpec{Name: "m", SearchDir: "/ext"}
	b := ModuleSpec{Name: "m", SearchDir: "/ext", EntryPoint: "Init_m"}
	assert.Equal(t, a.Key(), b.Key())
}

func TestLoadState_MarshalText(t *testing.T) {
	out, err := json.Marshal(ModuleInfo{Name: "m", State: StateLoaded})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"state":"loaded"`)
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "LoadState(9)", LoadState(9).String())
}

func TestManifest_Operation(t *testing.T) {
	var nilManifest *Manifest
	_, ok := nilManifest.Operation("add")
	assert.False(t, ok)
	assert.False(t, nilManifest.Declared())

	m := &Manifest{Operations: []Operation{{Name: "add", Symbol: "mymodule_add"}}}
	op, ok := m.Operation("add")
	require.True(t, ok)
	assert.Equal(t, "mymodule_add", op.SymbolName())
	assert.True(t, m.Declared())
}
