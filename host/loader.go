package host

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/reglet-dev/extbridge/application/manifest"
	"github.com/reglet-dev/extbridge/application/validation"
	"github.com/reglet-dev/extbridge/domain/entities"
	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/domain/ports"
	"github.com/reglet-dev/extbridge/host/registry"
	"github.com/reglet-dev/extbridge/infrastructure/native"
	"github.com/reglet-dev/extbridge/infrastructure/resolver"
	"github.com/reglet-dev/extbridge/infrastructure/wazero"
)

// Loader orchestrates the load pipeline: validate the arguments, resolve the
// artifact, read its manifest, open it, run the entry point, bind the
// operations.
type Loader struct {
	config  loaderConfig
	modules *registry.Registry[string, *Module]

	// mu guards closed and loaded. A module joins loaded in the same
	// critical section that checks closed, so Close sees every handle Load
	// can return.
	mu     sync.Mutex
	closed bool
	loaded []*Module
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.backends == nil {
		cfg.backends = []ports.Backend{
			native.New(native.WithLogger(cfg.logger)),
			wazero.New(
				wazero.WithLogger(cfg.logger),
				wazero.WithHostFunctions(cfg.hostFunctions),
				wazero.WithCloseOnContextDone(cfg.closeOnContextDone),
			),
		}
	}
	if cfg.resolver == nil {
		cfg.resolver = resolver.New(resolver.WithLogger(cfg.logger))
	}
	if cfg.reader == nil {
		cfg.reader = manifest.NewReader()
	}

	return &Loader{
		config:  cfg,
		modules: registry.New[string, *Module](),
	}
}

// Load initializes the module described by spec. The first Load of a spec
// does the work; every later Load of an equivalent spec returns the same
// handle or the same error.
func (l *Loader) Load(ctx context.Context, spec entities.ModuleSpec) (*Module, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, errs.New(errs.KindNotLoaded, errs.DomainLoader, "loader closed").WithModule(spec.Name)
	}

	spec, err := normalize(spec)
	if err != nil {
		return nil, err
	}
	return l.modules.Do(spec.Key(), func() (*Module, error) {
		return l.loadOnce(ctx, spec)
	})
}

// State reports where the load of spec stands: unloaded until a Load of it
// completes, then loaded or failed, and closed once the loader is closed.
func (l *Loader) State(spec entities.ModuleSpec) entities.LoadState {
	spec, err := normalize(spec)
	if err != nil {
		return entities.StateUnloaded
	}
	mod, ok, err := l.modules.Lookup(spec.Key())
	switch {
	case !ok:
		return entities.StateUnloaded
	case err != nil:
		return entities.StateFailed
	}
	return mod.state()
}

func normalize(spec entities.ModuleSpec) (entities.ModuleSpec, error) {
	if spec.SearchDir == "" {
		return spec, nil
	}
	abs, err := filepath.Abs(spec.SearchDir)
	if err != nil {
		return spec, errs.Wrap(err, errs.KindInvalidSpec, errs.DomainLoader, "search dir %q", spec.SearchDir).WithModule(spec.Name)
	}
	spec.SearchDir = abs
	return spec, nil
}

// loadOnce runs the pipeline and logs its outcome. A panic inside a backend
// is cached as a NativeInitFailure like any other failed load.
func (l *Loader) loadOnce(ctx context.Context, spec entities.ModuleSpec) (mod *Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			mod, err = nil, errs.Wrap(fmt.Errorf("panic: %v", r), errs.KindNativeInitFailure, errs.DomainLoader, "load aborted").WithModule(spec.Name)
		}
	}()

	m, err := l.load(ctx, spec)
	if err != nil {
		l.config.logger.ErrorContext(ctx, "host: load failed", "module", spec.Name, "search_dir", spec.SearchDir, "error", err)
		return nil, errs.Attribute(err, errs.KindNativeInitFailure, errs.DomainLoader, spec.Name, "")
	}

	l.mu.Lock()
	closed := l.closed
	if !closed {
		l.loaded = append(l.loaded, m)
	}
	l.mu.Unlock()
	if closed {
		_ = m.close(context.WithoutCancel(ctx))
		return nil, errs.New(errs.KindNotLoaded, errs.DomainLoader, "loader closed during load").WithModule(spec.Name)
	}

	l.config.logger.InfoContext(ctx, "host: module loaded",
		"module", spec.Name, "artifact", m.artifact.Path, "backend", m.artifact.Backend, "operations", len(m.order))
	return m, nil
}

func (l *Loader) load(ctx context.Context, spec entities.ModuleSpec) (*Module, error) {
	if err := validation.ValidateSpec(spec); err != nil {
		return nil, err
	}

	var candidates []entities.Candidate
	backends := make(map[string]ports.Backend, len(l.config.backends))
	for _, b := range l.config.backends {
		backends[b.Name()] = b
		for _, name := range b.Candidates(spec.Name) {
			candidates = append(candidates, entities.Candidate{FileName: name, Backend: b.Name()})
		}
	}

	artifact, err := l.config.resolver.Resolve(ctx, spec.SearchDir, spec.Name, candidates)
	if err != nil {
		return nil, err
	}
	backend, ok := backends[artifact.Backend]
	if !ok {
		return nil, errs.New(errs.KindArtifactNotFound, errs.DomainLoader, "no backend %q for %s", artifact.Backend, artifact.Path)
	}

	m, err := l.manifest(spec, artifact)
	if err != nil {
		return nil, err
	}

	lib, err := backend.Open(ctx, artifact.Path)
	if err != nil {
		return nil, err
	}
	mod, err := l.initialize(ctx, spec, artifact, lib, m)
	if err != nil {
		if cerr := lib.Close(context.WithoutCancel(ctx)); cerr != nil {
			l.config.logger.WarnContext(ctx, "host: close after failed load", "module", spec.Name, "error", cerr)
		}
		return nil, err
	}
	return mod, nil
}

func (l *Loader) manifest(spec entities.ModuleSpec, artifact entities.Artifact) (*entities.Manifest, error) {
	if m, ok := l.config.manifests[spec.Name]; ok {
		res, err := validation.NewManifestValidator().Validate(m)
		if err != nil {
			return nil, errs.Wrap(err, errs.KindInvalidSpec, errs.DomainManifest, "cannot validate manifest")
		}
		if !res.Valid {
			return nil, errs.New(errs.KindInvalidSpec, errs.DomainManifest, "invalid manifest: %s", res.Summary())
		}
		return m, nil
	}
	m, path, err := l.config.reader.Load(artifact.Path, spec.SearchDir, spec.Name)
	if err != nil {
		return nil, err
	}
	if path != "" {
		l.config.logger.Debug("host: manifest read", "module", spec.Name, "path", path)
	}
	return m, nil
}

func (l *Loader) initialize(ctx context.Context, spec entities.ModuleSpec, artifact entities.Artifact, lib ports.Library, m *entities.Manifest) (*Module, error) {
	if err := lib.Initialize(ctx, spec.Entry(), m); err != nil {
		return nil, err
	}

	ops := lib.Exports()
	if m.Declared() {
		ops = m.Operations
	}

	mod := &Module{
		spec:     spec,
		artifact: artifact,
		lib:      lib,
		ops:      make(map[string]binding, len(ops)),
		order:    ops,
	}
	for _, op := range ops {
		fn, err := lib.Bind(op)
		if err != nil {
			return nil, errs.Attribute(err, errs.KindSymbolSignatureMismatch, errs.DomainLoader, spec.Name, op.Name)
		}
		mod.ops[op.Name] = binding{op: op, fn: fn}
	}

	if !lib.Reentrant() || m == nil || !m.Reentrant {
		mod.sem = make(chan struct{}, 1)
	}
	mod.invoke = chain(l.config.interceptors, mod.dispatch)
	return mod, nil
}

// Modules returns the handles loaded so far in load order.
func (l *Loader) Modules() []*Module {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Module(nil), l.loaded...)
}

// Close releases every artifact the loader opened. Handles return NotLoaded
// afterwards and the loader refuses further loads.
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	loaded := l.loaded
	l.mu.Unlock()

	var errList []error
	for _, m := range loaded {
		if err := m.close(ctx); err != nil {
			errList = append(errList, errs.Attribute(err, errs.KindNativeCallFailure, errs.DomainLoader, m.spec.Name, ""))
		}
	}
	return errors.Join(errList...)
}
