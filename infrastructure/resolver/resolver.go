// Package resolver locates extension artifacts on disk.
//
// A module name resolves through the platform naming convention of every
// registered backend (libfoo.so, libfoo.dylib, foo.dll, foo.wasm) in a fixed
// order of directories below the search root:
//
//  1. the search root itself
//  2. <root>/<GOOS>_<GOARCH>
//  3. <root>/<module>
//  4. any <root>/**/target/{release,debug} build output directory
//
// The first tier containing a match wins. More than one distinct file in that
// tier is an error: the resolver never guesses between artifacts.
package resolver

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/reglet-dev/extbridge/domain/entities"
	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/domain/ports"
)

// FSResolver implements ports.ArtifactResolver on the local filesystem.
type FSResolver struct {
	logger *slog.Logger
	goos   string
	goarch string
}

// Option configures an FSResolver.
type Option func(*FSResolver)

// WithPlatform overrides the GOOS/GOARCH pair used for the platform subdirectory.
func WithPlatform(goos, goarch string) Option {
	return func(r *FSResolver) {
		r.goos = goos
		r.goarch = goarch
	}
}

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *FSResolver) {
		r.logger = l
	}
}

// New creates a resolver for the running platform.
func New(opts ...Option) *FSResolver {
	r := &FSResolver{
		logger: slog.Default(),
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.ArtifactResolver = (*FSResolver)(nil)

type match struct {
	path    string
	backend string
	real    string
}

// Resolve returns the single artifact for module below searchDir.
func (r *FSResolver) Resolve(ctx context.Context, searchDir, module string, candidates []entities.Candidate) (entities.Artifact, error) {
	info, err := os.Stat(searchDir)
	if err != nil {
		return entities.Artifact{}, errs.Wrap(err, errs.KindArtifactNotFound, errs.DomainResolver, "search dir %q is not accessible", searchDir)
	}
	if !info.IsDir() {
		return entities.Artifact{}, errs.New(errs.KindArtifactNotFound, errs.DomainResolver, "search dir %q is not a directory", searchDir)
	}
	if len(candidates) == 0 {
		return entities.Artifact{}, errs.New(errs.KindArtifactNotFound, errs.DomainResolver, "no backend accepts module %q on %s", module, r.goos)
	}

	tiers := []string{
		searchDir,
		filepath.Join(searchDir, PlatformDir(r.goos, r.goarch)),
		filepath.Join(searchDir, module),
	}
	for _, dir := range tiers {
		if err := ctx.Err(); err != nil {
			return entities.Artifact{}, errs.Wrap(err, errs.KindArtifactNotFound, errs.DomainResolver, "resolution interrupted")
		}
		found := r.scan(dir, candidates)
		if len(found) > 0 {
			return r.pick(module, dir, found)
		}
	}

	found, err := r.buildOutputs(searchDir, candidates)
	if err != nil {
		return entities.Artifact{}, errs.Wrap(err, errs.KindArtifactNotFound, errs.DomainResolver, "search of build outputs failed")
	}
	if len(found) > 0 {
		return r.pick(module, searchDir, found)
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.FileName
	}
	return entities.Artifact{}, errs.New(errs.KindArtifactNotFound, errs.DomainResolver,
		"none of [%s] found below %s", strings.Join(names, ", "), searchDir)
}

func (r *FSResolver) scan(dir string, candidates []entities.Candidate) []match {
	var found []match
	for _, c := range candidates {
		p := filepath.Join(dir, c.FileName)
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		found = append(found, match{path: p, backend: c.Backend})
	}
	return found
}

func (r *FSResolver) buildOutputs(root string, candidates []entities.Candidate) ([]match, error) {
	byName := make(map[string]string, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := byName[c.FileName]; dup {
			continue
		}
		byName[c.FileName] = c.Backend
		names = append(names, c.FileName)
	}

	pattern := "**/target/{release,debug}/{" + strings.Join(names, ",") + "}"
	paths, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	found := make([]match, 0, len(paths))
	for _, p := range paths {
		found = append(found, match{
			path:    filepath.Join(root, filepath.FromSlash(p)),
			backend: byName[path.Base(p)],
		})
	}
	return found, nil
}

// pick de-duplicates matches by real path and insists on exactly one.
func (r *FSResolver) pick(module, dir string, found []match) (entities.Artifact, error) {
	seen := make(map[string]bool, len(found))
	var distinct []match
	for _, m := range found {
		m.real = m.path
		if real, err := filepath.EvalSymlinks(m.path); err == nil {
			m.real = real
		}
		if seen[m.real] {
			continue
		}
		seen[m.real] = true
		distinct = append(distinct, m)
	}

	if len(distinct) > 1 {
		paths := make([]string, len(distinct))
		for i, m := range distinct {
			paths[i] = m.path
		}
		sort.Strings(paths)
		return entities.Artifact{}, errs.New(errs.KindArtifactNotFound, errs.DomainResolver,
			"ambiguous artifact for %q in %s: %s", module, dir, strings.Join(paths, ", "))
	}

	m := distinct[0]
	r.logger.Debug("resolver: artifact found", "module", module, "path", m.path, "backend", m.backend)
	return entities.Artifact{Path: m.path, Backend: m.backend}, nil
}
