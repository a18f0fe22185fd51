package wazero

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/domain/ports"
	"github.com/reglet-dev/extbridge/hostfuncs"
)

// Name identifies the wasm backend.
const Name = "wasm"

// Extension is the artifact file extension.
const Extension = ".wasm"

type backendConfig struct {
	logger             *slog.Logger
	registry           *hostfuncs.HandlerRegistry
	maxRequestSize     uint32
	closeOnContextDone bool
}

// Backend implements ports.Backend for WebAssembly modules.
type Backend struct {
	config backendConfig
}

// Option configures a Backend.
type Option func(*backendConfig)

// WithLogger sets the logger for load diagnostics and guest log_message.
func WithLogger(l *slog.Logger) Option {
	return func(c *backendConfig) {
		c.logger = l
	}
}

// WithHostFunctions exports the registry's callbacks to every guest.
func WithHostFunctions(registry *hostfuncs.HandlerRegistry) Option {
	return func(c *backendConfig) {
		c.registry = registry
	}
}

// WithMaxRequestSize bounds a single callback request read from a guest.
func WithMaxRequestSize(size uint32) Option {
	return func(c *backendConfig) {
		c.maxRequestSize = size
	}
}

// WithCloseOnContextDone aborts running guest code when the call's context
// is done. Off by default: the check costs a little on every loop.
func WithCloseOnContextDone(enabled bool) Option {
	return func(c *backendConfig) {
		c.closeOnContextDone = enabled
	}
}

func defaultBackendConfig() backendConfig {
	return backendConfig{
		logger:         slog.Default(),
		maxRequestSize: hostfuncs.DefaultMaxRequestSize,
	}
}

// New creates a wasm backend.
func New(opts ...Option) *Backend {
	cfg := defaultBackendConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Backend{config: cfg}
}

var _ ports.Backend = (*Backend)(nil)

func (b *Backend) Name() string {
	return Name
}

// Candidates returns <module>.wasm on every platform.
func (b *Backend) Candidates(module string) []string {
	return []string{module + Extension}
}

// Open compiles and instantiates the module at path in a runtime of its own.
// Start functions are not run; Initialize does that.
func (b *Backend) Open(ctx context.Context, path string) (ports.Library, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainWasm, "cannot read %s", path)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().
		WithCloseOnContextDone(b.config.closeOnContextDone))

	lib, err := b.instantiate(ctx, rt, path, code)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return lib, nil
}

func (b *Backend) instantiate(ctx context.Context, rt wazero.Runtime, path string, code []byte) (*library, error) {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return nil, errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainWasm, "cannot instantiate WASI")
	}
	if err := registerHostModule(ctx, rt, b.config.registry, b.config.logger, b.config.maxRequestSize); err != nil {
		return nil, errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainWasm, "cannot instantiate %s", HostModuleName)
	}

	compiled, err := rt.CompileModule(ctx, code)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainWasm, "cannot compile %s", path)
	}

	name := strings.TrimSuffix(filepath.Base(path), Extension)
	config := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions().
		WithStdout(os.Stdout).
		WithStderr(os.Stderr)
	mod, err := rt.InstantiateModule(hostfuncs.WithModuleName(ctx, name), compiled, config)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindNativeInitFailure, errs.DomainWasm, "cannot instantiate %s", path)
	}

	b.config.logger.DebugContext(ctx, "wasm: module instantiated", "path", path, "exports", len(compiled.ExportedFunctions()))
	return &library{
		runtime:  rt,
		compiled: compiled,
		module:   mod,
		name:     name,
		path:     path,
		logger:   b.config.logger,
	}, nil
}
