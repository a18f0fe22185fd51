package host

import (
	"log/slog"

	"github.com/reglet-dev/extbridge/application/manifest"
	"github.com/reglet-dev/extbridge/domain/entities"
	"github.com/reglet-dev/extbridge/domain/ports"
	"github.com/reglet-dev/extbridge/hostfuncs"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	logger             *slog.Logger
	backends           []ports.Backend
	resolver           ports.ArtifactResolver
	reader             *manifest.Reader
	hostFunctions      *hostfuncs.HandlerRegistry
	interceptors       []Interceptor
	manifests          map[string]*entities.Manifest
	closeOnContextDone bool
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		logger:       slog.Default(),
		interceptors: []Interceptor{RecoveryInterceptor()},
		manifests:    make(map[string]*entities.Manifest),
	}
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithLogger sets the logger passed down to the resolver and backends.
func WithLogger(l *slog.Logger) LoaderOption {
	return func(c *loaderConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBackends replaces the default native and wasm backends. Backends are
// consulted in order when building artifact candidates.
func WithBackends(backends ...ports.Backend) LoaderOption {
	return func(c *loaderConfig) {
		c.backends = backends
	}
}

// WithResolver sets the artifact resolver.
func WithResolver(r ports.ArtifactResolver) LoaderOption {
	return func(c *loaderConfig) {
		c.resolver = r
	}
}

// WithManifestReader sets the sidecar manifest reader.
func WithManifestReader(r *manifest.Reader) LoaderOption {
	return func(c *loaderConfig) {
		c.reader = r
	}
}

// WithManifest supplies the manifest for module directly, bypassing the
// sidecar file lookup.
func WithManifest(module string, m *entities.Manifest) LoaderOption {
	return func(c *loaderConfig) {
		c.manifests[module] = m
	}
}

// WithHostFunctions exposes registry to wasm artifacts. Only applies to the
// default wasm backend.
func WithHostFunctions(registry *hostfuncs.HandlerRegistry) LoaderOption {
	return func(c *loaderConfig) {
		c.hostFunctions = registry
	}
}

// WithInterceptors appends call interceptors. The first interceptor given is
// the outermost.
func WithInterceptors(interceptors ...Interceptor) LoaderOption {
	return func(c *loaderConfig) {
		c.interceptors = append(c.interceptors, interceptors...)
	}
}

// WithCloseOnContextDone lets the default wasm backend abort guest code when
// a call's context is cancelled. Native calls cannot be interrupted.
func WithCloseOnContextDone(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.closeOnContextDone = enabled
	}
}
