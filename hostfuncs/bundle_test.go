package hostfuncs

import (
	"context"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeBundle(t *testing.T) {
	handlers := RuntimeBundle().Handlers()
	require.Contains(t, handlers, "host_platform")
	require.Contains(t, handlers, "host_time")

	ctx := WithModuleName(context.Background(), "mymodule")
	out, err := handlers["host_platform"](ctx, nil)
	require.NoError(t, err)

	var resp PlatformResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, runtime.GOOS, resp.OS)
	assert.Equal(t, runtime.GOARCH, resp.Arch)
	assert.Equal(t, "mymodule", resp.Module)

	out, err = handlers["host_time"](ctx, nil)
	require.NoError(t, err)
	var now TimeResponse
	require.NoError(t, json.Unmarshal(out, &now))
	assert.Positive(t, now.UnixNano)
}

func TestEnvBundle(t *testing.T) {
	t.Setenv("EXTBRIDGE_TEST_VALUE", "42")
	handler := EnvBundle("EXTBRIDGE_TEST_VALUE").Handlers()["env_lookup"]
	require.NotNil(t, handler)

	lookup := func(name string) EnvResponse {
		req, err := json.Marshal(EnvRequest{Name: name})
		require.NoError(t, err)
		out, err := handler(context.Background(), req)
		require.NoError(t, err)
		var resp EnvResponse
		require.NoError(t, json.Unmarshal(out, &resp))
		return resp
	}

	resp := lookup("EXTBRIDGE_TEST_VALUE")
	assert.True(t, resp.Found)
	assert.Equal(t, "42", resp.Value)

	resp = lookup("HOME")
	assert.False(t, resp.Found)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DENIED", resp.Error.Error)
}

func TestWithBundle_Duplicate(t *testing.T) {
	_, err := NewRegistry(WithBundle(RuntimeBundle()), WithBundle(RuntimeBundle()))
	assert.Error(t, err)
}
