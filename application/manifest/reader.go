// Package manifest runs the sidecar manifest pipeline: locate the file next
// to the artifact, render it as a template, parse it and validate it.
package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	apptemplate "github.com/reglet-dev/extbridge/application/template"
	"github.com/reglet-dev/extbridge/application/validation"
	"github.com/reglet-dev/extbridge/domain/entities"
	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/domain/ports"
	"github.com/reglet-dev/extbridge/infrastructure/parser"
)

// Suffixes are tried in order after the module name.
var Suffixes = []string{".ext.yaml", ".ext.yml", ".yaml"}

// Reader loads manifests.
type Reader struct {
	parser    ports.ManifestParser
	renderer  ports.TemplateEngine
	validator ports.ManifestValidator
}

// Option configures a Reader.
type Option func(*Reader)

// WithParser sets the manifest parser.
func WithParser(p ports.ManifestParser) Option {
	return func(r *Reader) {
		r.parser = p
	}
}

// WithTemplateEngine sets the template engine. nil disables rendering.
func WithTemplateEngine(t ports.TemplateEngine) Option {
	return func(r *Reader) {
		r.renderer = t
	}
}

// WithValidator sets the validator. nil disables validation.
func WithValidator(v ports.ManifestValidator) Option {
	return func(r *Reader) {
		r.validator = v
	}
}

// NewReader creates a Reader with the YAML parser, the strict template
// engine and the struct tag validator.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		parser:    parser.NewYamlManifestParser(),
		renderer:  apptemplate.NewGoTemplateEngine(),
		validator: validation.NewManifestValidator(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Find returns the manifest path for module, looking beside the artifact
// first and in the search dir second.
func Find(artifactPath, searchDir, module string) (string, bool) {
	dirs := []string{filepath.Dir(artifactPath)}
	if searchDir != "" && searchDir != dirs[0] {
		dirs = append(dirs, searchDir)
	}
	for _, dir := range dirs {
		for _, suffix := range Suffixes {
			p := filepath.Join(dir, module+suffix)
			if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
				return p, true
			}
		}
	}
	return "", false
}

// Load reads the manifest for module. A missing file yields (nil, nil).
func (r *Reader) Load(artifactPath, searchDir, module string) (*entities.Manifest, string, error) {
	path, ok := Find(artifactPath, searchDir, module)
	if !ok {
		return nil, "", nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", nil
	}
	if err != nil {
		return nil, path, errs.Wrap(err, errs.KindInvalidSpec, errs.DomainManifest, "cannot read %s", path)
	}
	m, err := r.Read(raw, apptemplate.Values(module, filepath.Dir(artifactPath)))
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			e.Message = path + ": " + e.Message
		}
		return nil, path, err
	}
	if m.Name != "" && m.Name != module {
		return nil, path, errs.New(errs.KindInvalidSpec, errs.DomainManifest,
			"%s: declares module %q, loading %q", path, m.Name, module)
	}
	return m, path, nil
}

// Read runs raw through render, parse and validate.
func (r *Reader) Read(raw []byte, values map[string]any) (*entities.Manifest, error) {
	data := raw
	if r.renderer != nil {
		var err error
		data, err = r.renderer.Render(raw, values)
		if err != nil {
			return nil, errs.Wrap(err, errs.KindInvalidSpec, errs.DomainManifest, "cannot render manifest")
		}
	}

	m, err := r.parser.Parse(data)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindInvalidSpec, errs.DomainManifest, "cannot parse manifest")
	}

	if r.validator != nil {
		res, err := r.validator.Validate(m)
		if err != nil {
			return nil, errs.Wrap(err, errs.KindInvalidSpec, errs.DomainManifest, "cannot validate manifest")
		}
		if !res.Valid {
			return nil, errs.New(errs.KindInvalidSpec, errs.DomainManifest, "invalid manifest: %s", res.Summary())
		}
	}
	return m, nil
}
