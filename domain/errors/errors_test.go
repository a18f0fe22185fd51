package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/extbridge/domain/entities"
)

func TestError_Message(t *testing.T) {
	err := New(KindArtifactNotFound, DomainResolver, "no lib%s.so in %s", "mymodule", "/ext").
		WithModule("mymodule")

	assert.Equal(t, "mymodule: artifact_not_found: no libmymodule.so in /ext", err.Error())
}

func TestError_MessageWithOperationAndCause(t *testing.T) {
	cause := fmt.Errorf("wasm trap: integer divide by zero")
	err := Wrap(cause, KindNativeCallFailure, DomainWasm, "call failed").
		WithModule("mymodule").
		WithOperation("div")

	assert.Equal(t, "mymodule: div: native_call_failure: call failed: wasm trap: integer divide by zero", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestError_IsMatchesKind(t *testing.T) {
	err := New(KindEntryPointNotFound, DomainNative, "symbol Init_x not exported")
	wrapped := fmt.Errorf("loading: %w", err)

	assert.True(t, errors.Is(wrapped, ErrEntryPointNotFound))
	assert.False(t, errors.Is(wrapped, ErrArtifactNotFound))

	var bridgeErr *Error
	require.True(t, errors.As(wrapped, &bridgeErr))
	assert.Equal(t, DomainNative, bridgeErr.Domain)
}

func TestError_WithModuleCopies(t *testing.T) {
	base := New(KindNotLoaded, DomainLoader, "module is not loaded")
	attributed := base.WithModule("m")

	assert.Empty(t, base.Module)
	assert.Equal(t, "m", attributed.Module)
}

func TestKind_Fatal(t *testing.T) {
	tests := []struct {
		kind  Kind
		fatal bool
	}{
		{KindArtifactNotFound, true},
		{KindEntryPointNotFound, true},
		{KindNativeInitFailure, true},
		{KindInvalidSpec, true},
		{KindSymbolSignatureMismatch, false},
		{KindNativeCallFailure, false},
		{KindNotLoaded, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.fatal, tt.kind.Fatal())
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNativeCallFailure, KindOf(fmt.Errorf("x: %w", ErrNativeCallFailure)))
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestAttribute(t *testing.T) {
	t.Run("plain error is wrapped", func(t *testing.T) {
		err := Attribute(fmt.Errorf("boom"), KindNativeCallFailure, DomainNative, "m", "op")
		assert.Equal(t, KindNativeCallFailure, err.Kind)
		assert.Equal(t, "m", err.Module)
		assert.Equal(t, "op", err.Operation)
	})

	t.Run("existing attribution is kept", func(t *testing.T) {
		orig := New(KindSymbolSignatureMismatch, DomainWasm, "bad").WithModule("other")
		err := Attribute(orig, KindNativeCallFailure, DomainNative, "m", "")
		assert.Equal(t, KindSymbolSignatureMismatch, err.Kind)
		assert.Equal(t, "other", err.Module)
		assert.Empty(t, err.Operation)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Attribute(nil, KindNativeCallFailure, DomainNative, "m", ""))
	})
}

func TestToErrorDetail(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ToErrorDetail(nil))
	})

	t.Run("bridge error with cause", func(t *testing.T) {
		err := Wrap(fmt.Errorf("dlopen: no such file"), KindNativeInitFailure, DomainNative, "open failed").
			WithModule("mymodule")

		d := ToErrorDetail(err)
		require.NotNil(t, d)
		assert.Equal(t, "native_init_failure", d.Kind)
		assert.Equal(t, "native", d.Domain)
		assert.Equal(t, "mymodule", d.Module)
		assert.True(t, d.Fatal)
		require.NotNil(t, d.Wrapped)
		assert.Equal(t, "internal", d.Wrapped.Kind)
		assert.Equal(t, "dlopen: no such file", d.Wrapped.Message)
	})

	t.Run("existing detail passes through", func(t *testing.T) {
		orig := entities.NewErrorDetail("custom", "msg")
		assert.Same(t, orig, ToErrorDetail(fmt.Errorf("wrap: %w", orig)))
	})

	t.Run("generic error", func(t *testing.T) {
		d := ToErrorDetail(fmt.Errorf("something"))
		assert.Equal(t, "internal", d.Kind)
		assert.False(t, d.Fatal)
	})
}
