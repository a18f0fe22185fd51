package host_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/reglet-dev/extbridge/domain/entities"
	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/host"
	"github.com/reglet-dev/extbridge/hostfuncs"
	"github.com/reglet-dev/extbridge/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LoaderSuite loads the wasm reference extension through the default
// backends.
type LoaderSuite struct {
	suite.Suite
	ctx    context.Context
	dir    string
	loader *host.Loader
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderSuite))
}

func (s *LoaderSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()
	testutil.MyModule().Write(s.T(), s.dir, "mymodule")
	s.writeManifest(s.dir, testutil.MyModuleManifest)
	s.loader = host.NewLoader(host.WithLogger(discardLogger()))
}

func (s *LoaderSuite) TearDownTest() {
	s.NoError(s.loader.Close(s.ctx))
}

func (s *LoaderSuite) writeManifest(dir, content string) {
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "mymodule.ext.yaml"), []byte(content), 0o644))
}

func (s *LoaderSuite) spec() entities.ModuleSpec {
	return entities.ModuleSpec{Name: "mymodule", SearchDir: s.dir, EntryPoint: "Init_mymodule"}
}

func (s *LoaderSuite) load() *host.Module {
	mod, err := s.loader.Load(s.ctx, s.spec())
	s.Require().NoError(err)
	return mod
}

func (s *LoaderSuite) TestLoadAndCall() {
	mod := s.load()

	got, err := mod.Call(s.ctx, "add", 2, 3)
	s.Require().NoError(err)
	s.Equal(int32(5), got)

	tests := []struct {
		op   string
		args []any
		want any
	}{
		{"scale", []any{1.5, 2}, float64(3)},
		{"negate", []any{int64(7)}, int64(-7)},
		{"echo", []any{"hello"}, "hello"},
		{"length", []any{[]byte{1, 2, 3}}, int32(3)},
		{"add", []any{"40", 2.0}, int32(42)},
	}
	for _, tt := range tests {
		got, err := mod.Call(s.ctx, tt.op, tt.args...)
		s.Require().NoError(err, tt.op)
		s.Equal(tt.want, got, tt.op)
	}
}

func (s *LoaderSuite) TestLoad_Idempotent() {
	first := s.load()

	wd, err := os.Getwd()
	s.Require().NoError(err)
	rel, err := filepath.Rel(wd, s.dir)
	s.Require().NoError(err)

	second, err := s.loader.Load(s.ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: rel})
	s.Require().NoError(err)
	s.Same(first, second)

	count, err := second.Call(s.ctx, "init_count")
	s.Require().NoError(err)
	s.Equal(int32(1), count)
	s.Len(s.loader.Modules(), 1)
}

func (s *LoaderSuite) TestLoad_DefaultEntryPoint() {
	mod, err := s.loader.Load(s.ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: s.dir})
	s.Require().NoError(err)
	s.Equal("Init_mymodule", mod.Info().EntryPoint)
}

func (s *LoaderSuite) TestLoad_ArtifactNotFound() {
	spec := entities.ModuleSpec{Name: "othermodule", SearchDir: s.dir}
	mod, err := s.loader.Load(s.ctx, spec)
	e := testutil.RequireErrorKind(s.T(), err, errs.KindArtifactNotFound)
	s.Nil(mod)
	s.Equal("othermodule", e.Module)
	s.True(e.Fatal())

	mod, again := s.loader.Load(s.ctx, spec)
	s.Nil(mod)
	s.Equal(err, again)
	s.Empty(s.loader.Modules())
}

func (s *LoaderSuite) TestState() {
	s.Equal(entities.StateUnloaded, s.loader.State(s.spec()))

	s.load()
	s.Equal(entities.StateLoaded, s.loader.State(s.spec()))

	missing := entities.ModuleSpec{Name: "othermodule", SearchDir: s.dir}
	_, err := s.loader.Load(s.ctx, missing)
	s.Require().Error(err)
	s.Equal(entities.StateFailed, s.loader.State(missing))
}

func (s *LoaderSuite) TestLoad_MissingSearchDir() {
	_, err := s.loader.Load(s.ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: filepath.Join(s.dir, "missing")})
	testutil.RequireErrorKind(s.T(), err, errs.KindArtifactNotFound)
}

func (s *LoaderSuite) TestLoad_InvalidName() {
	_, err := s.loader.Load(s.ctx, entities.ModuleSpec{Name: "my module", SearchDir: s.dir})
	testutil.RequireErrorKind(s.T(), err, errs.KindInvalidSpec)
}

func (s *LoaderSuite) TestLoad_EntryPointNotFound() {
	spec := s.spec()
	spec.EntryPoint = "Init_other"
	mod, err := s.loader.Load(s.ctx, spec)
	e := testutil.RequireErrorKind(s.T(), err, errs.KindEntryPointNotFound)
	s.Nil(mod)
	s.Contains(e.Error(), "Init_other")
	s.Empty(s.loader.Modules())
}

func (s *LoaderSuite) TestLoad_NativeInitFailure() {
	dir := s.T().TempDir()
	testutil.FailingInit().Write(s.T(), dir, "mymodule")
	s.writeManifest(dir, testutil.MyModuleManifest)

	mod, err := s.loader.Load(s.ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: dir})
	e := testutil.RequireErrorKind(s.T(), err, errs.KindNativeInitFailure)
	s.Nil(mod)
	s.Equal(errs.DomainWasm, e.Domain)
	s.Empty(s.loader.Modules())
}

func (s *LoaderSuite) TestLoad_SymbolSignatureMismatch() {
	tests := []struct {
		name     string
		manifest string
	}{
		{"wrong params", "operations:\n  - name: add\n    params: [i64, i64]\n    result: i32\n"},
		{"missing symbol", "operations:\n  - name: mul\n    params: [i32, i32]\n    result: i32\n"},
		{"wrong result", "operations:\n  - name: fail\n    result: i32\n"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			dir := s.T().TempDir()
			testutil.MyModule().Write(s.T(), dir, "mymodule")
			s.writeManifest(dir, tt.manifest)

			mod, err := s.loader.Load(s.ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: dir})
			testutil.RequireErrorKind(s.T(), err, errs.KindSymbolSignatureMismatch)
			s.Nil(mod)
		})
	}
	s.Empty(s.loader.Modules())
}

func (s *LoaderSuite) TestLoad_InvalidManifest() {
	dir := s.T().TempDir()
	testutil.MyModule().Write(s.T(), dir, "mymodule")
	s.writeManifest(dir, "operations:\n  - name: add\n    params: [int]\n")

	_, err := s.loader.Load(s.ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: dir})
	e := testutil.RequireErrorKind(s.T(), err, errs.KindInvalidSpec)
	s.Equal(errs.DomainManifest, e.Domain)
}

func (s *LoaderSuite) TestLoad_WithoutManifest() {
	dir := s.T().TempDir()
	testutil.MyModule().Write(s.T(), dir, "mymodule")

	mod, err := s.loader.Load(s.ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: dir})
	s.Require().NoError(err)

	var names []string
	for _, op := range mod.Operations() {
		names = append(names, op.Name)
	}
	s.Contains(names, "add")
	s.NotContains(names, "allocate")
	s.NotContains(names, "Init_mymodule")

	got, err := mod.Call(s.ctx, "add", 20, 22)
	s.Require().NoError(err)
	s.Equal(int32(42), got)
}

func (s *LoaderSuite) TestLoad_ManifestOption() {
	dir := s.T().TempDir()
	testutil.MyModule().Write(s.T(), dir, "mymodule")
	loader := host.NewLoader(
		host.WithLogger(discardLogger()),
		host.WithManifest("mymodule", &entities.Manifest{
			Operations: []entities.Operation{{Name: "sum", Symbol: "add", Params: []entities.TypeTag{"i32", "i32"}, Result: "i32"}},
		}),
	)
	defer loader.Close(s.ctx)

	mod, err := loader.Load(s.ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: dir})
	s.Require().NoError(err)
	s.Len(mod.Operations(), 1)

	got, err := mod.Call(s.ctx, "sum", 1, 2)
	s.Require().NoError(err)
	s.Equal(int32(3), got)
}

func (s *LoaderSuite) TestCall_SignatureMismatch() {
	mod := s.load()

	tests := []struct {
		name string
		op   string
		args []any
	}{
		{"unknown operation", "mul", []any{1, 2}},
		{"too few arguments", "add", []any{1}},
		{"too many arguments", "add", []any{1, 2, 3}},
		{"wrong type", "add", []any{"two", 3}},
		{"overflow", "add", []any{int64(1) << 40, 3}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := mod.Call(s.ctx, tt.op, tt.args...)
			e := testutil.RequireErrorKind(s.T(), err, errs.KindSymbolSignatureMismatch)
			s.Equal("mymodule", e.Module)
			s.False(e.Fatal())
		})
	}
}

func (s *LoaderSuite) TestCall_NativeCallFailure() {
	mod := s.load()

	_, err := mod.Call(s.ctx, "div", 1, 0)
	e := testutil.RequireErrorKind(s.T(), err, errs.KindNativeCallFailure)
	s.Equal("div", e.Operation)

	_, err = mod.Call(s.ctx, "fail")
	testutil.RequireErrorKind(s.T(), err, errs.KindNativeCallFailure)

	// The module survives call failures.
	got, err := mod.Call(s.ctx, "div", 9, 3)
	s.Require().NoError(err)
	s.Equal(int32(3), got)
}

func (s *LoaderSuite) TestCall_ZeroModule() {
	var zero host.Module
	_, err := zero.Call(s.ctx, "add", 1, 2)
	testutil.RequireErrorKind(s.T(), err, errs.KindNotLoaded)
	s.Equal(entities.StateUnloaded, zero.Info().State)

	var nilModule *host.Module
	_, err = nilModule.Call(s.ctx, "add", 1, 2)
	testutil.RequireErrorKind(s.T(), err, errs.KindNotLoaded)
	s.Empty(nilModule.Name())
}

func (s *LoaderSuite) TestCall_Concurrent() {
	mod := s.load()

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := mod.Call(s.ctx, "add", i, 1)
			s.NoError(err)
			s.Equal(int32(i+1), got)
		}()
	}
	wg.Wait()
}

func (s *LoaderSuite) TestInfo() {
	mod := s.load()
	info := mod.Info()

	s.Equal("mymodule", info.Name)
	s.Equal(entities.StateLoaded, info.State)
	s.Equal("wasm", info.Artifact.Backend)
	s.Equal(filepath.Join(s.dir, "mymodule.wasm"), info.Artifact.Path)
	s.False(info.Reentrant)
	s.Len(info.Operations, 8)
}

func (s *LoaderSuite) TestClose() {
	mod := s.load()
	s.Require().NoError(s.loader.Close(s.ctx))

	_, err := mod.Call(s.ctx, "add", 1, 2)
	testutil.RequireErrorKind(s.T(), err, errs.KindNotLoaded)
	s.Equal(entities.StateClosed, mod.Info().State)
	s.Equal(entities.StateClosed, s.loader.State(s.spec()))

	_, err = s.loader.Load(s.ctx, s.spec())
	testutil.RequireErrorKind(s.T(), err, errs.KindNotLoaded)

	s.NoError(s.loader.Close(s.ctx))
}

func (s *LoaderSuite) TestHostFunctions() {
	dir := s.T().TempDir()
	testutil.HostCaller().Write(s.T(), dir, "hostcaller")

	registry, err := hostfuncs.NewRegistry(hostfuncs.WithBundle(hostfuncs.RuntimeBundle()))
	s.Require().NoError(err)
	loader := host.NewLoader(host.WithLogger(discardLogger()), host.WithHostFunctions(registry))
	defer loader.Close(s.ctx)

	mod, err := loader.Load(s.ctx, entities.ModuleSpec{Name: "hostcaller", SearchDir: dir})
	s.Require().NoError(err)

	n, err := mod.Call(s.ctx, "platform_len")
	s.Require().NoError(err)
	s.Positive(n.(int32))
}

func TestInterceptors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutil.MyModule().Write(t, dir, "mymodule")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mymodule.ext.yaml"), []byte(testutil.MyModuleManifest), 0o644))

	var seen []*host.Invocation
	record := func(next host.Invoker) host.Invoker {
		return func(ctx context.Context, inv *host.Invocation) (any, error) {
			seen = append(seen, inv)
			return next(ctx, inv)
		}
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	loader := host.NewLoader(
		host.WithLogger(discardLogger()),
		host.WithInterceptors(record, host.LoggingInterceptor(logger)),
	)
	defer loader.Close(ctx)

	mod, err := loader.Load(ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: dir})
	require.NoError(t, err)

	_, err = mod.Call(ctx, "add", 2, "3")
	require.NoError(t, err)
	_, err = mod.Call(ctx, "div", 1, 0)
	require.Error(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, []any{int32(2), int32(3)}, seen[0].Args)
	assert.Equal(t, "mymodule", seen[0].Module)
	assert.Contains(t, buf.String(), `"msg":"host: call completed"`)
	assert.Contains(t, buf.String(), `"msg":"host: call failed"`)
	assert.Contains(t, buf.String(), `"operation":"div"`)
}

func TestLazy(t *testing.T) {
	dir := t.TempDir()
	testutil.MyModule().Write(t, dir, "mymodule")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mymodule.ext.yaml"), []byte(testutil.MyModuleManifest), 0o644))

	get := host.Lazy(entities.ModuleSpec{Name: "mymodule", SearchDir: dir}, host.WithLogger(discardLogger()))

	first, err := get(context.Background())
	require.NoError(t, err)
	second, err := get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)

	count, err := first.Call(context.Background(), "init_count")
	require.NoError(t, err)
	assert.Equal(t, int32(1), count)
}

func TestMustLoad(t *testing.T) {
	loader := host.NewLoader(host.WithLogger(discardLogger()))
	defer loader.Close(context.Background())

	assert.Panics(t, func() {
		host.MustLoad(context.Background(), loader, entities.ModuleSpec{Name: "mymodule", SearchDir: t.TempDir()})
	})
}
