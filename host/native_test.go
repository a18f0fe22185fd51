package host_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/extbridge/domain/entities"
	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/host"
	"github.com/reglet-dev/extbridge/internal/testutil"
)

const nativeManifest = `name: mymodule
last_error: mymodule_last_error
operations:
  - name: add
    params: [i32, i32]
    result: i32
  - name: init_count
    symbol: mymodule_init_count
    result: i32
  - name: div
    symbol: checked_div
    params: [i32, i32]
    result: i32
    fail_when: negative
  - name: count_chars
    params: [string]
    result: i32
`

func TestNativeEndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := testutil.BuildSharedLibrary(t, "../infrastructure/native/testdata/mymodule.c", filepath.Join(dir, "mymodule"), "mymodule")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mymodule.ext.yaml"), []byte(nativeManifest), 0o644))

	loader := host.NewLoader(host.WithLogger(discardLogger()))
	defer loader.Close(ctx)

	mod, err := loader.Load(ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: dir, EntryPoint: "Init_mymodule"})
	require.NoError(t, err)
	assert.Equal(t, path, mod.Info().Artifact.Path)
	assert.Equal(t, "native", mod.Info().Artifact.Backend)

	got, err := mod.Call(ctx, "add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(5), got)

	again, err := loader.Load(ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: dir})
	require.NoError(t, err)
	assert.Same(t, mod, again)
	count, err := mod.Call(ctx, "init_count")
	require.NoError(t, err)
	assert.Equal(t, int32(1), count)

	n, err := mod.Call(ctx, "count_chars", "extension")
	require.NoError(t, err)
	assert.Equal(t, int32(9), n)

	_, err = mod.Call(ctx, "div", 1, 0)
	e := testutil.RequireErrorKind(t, err, errs.KindNativeCallFailure)
	assert.Contains(t, e.Error(), "division by zero")

	_, err = mod.Call(ctx, "add", "x", 1)
	testutil.RequireErrorKind(t, err, errs.KindSymbolSignatureMismatch)
}

func TestNativeInitOncePerProcess(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutil.BuildSharedLibrary(t, "../infrastructure/native/testdata/mymodule.c", dir, "mymodule")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mymodule.ext.yaml"), []byte(nativeManifest), 0o644))
	spec := entities.ModuleSpec{Name: "mymodule", SearchDir: dir}

	first := host.Lazy(spec, host.WithLogger(discardLogger()))
	second := host.Lazy(spec, host.WithLogger(discardLogger()))

	a, err := first(ctx)
	require.NoError(t, err)
	b, err := second(ctx)
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	for _, mod := range []*host.Module{a, b} {
		count, err := mod.Call(ctx, "init_count")
		require.NoError(t, err)
		assert.Equal(t, int32(1), count)
	}
}

func TestNativeMissingSymbol(t *testing.T) {
	dir := t.TempDir()
	testutil.BuildSharedLibrary(t, "../infrastructure/native/testdata/mymodule.c", dir, "mymodule")
	manifest := "operations:\n  - name: mul\n    params: [i32, i32]\n    result: i32\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mymodule.ext.yaml"), []byte(manifest), 0o644))

	loader := host.NewLoader(host.WithLogger(discardLogger()))
	defer loader.Close(context.Background())

	_, err := loader.Load(context.Background(), entities.ModuleSpec{Name: "mymodule", SearchDir: dir})
	testutil.RequireErrorKind(t, err, errs.KindSymbolSignatureMismatch)
}
