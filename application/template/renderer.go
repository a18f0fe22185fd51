// Package template renders manifest files before they are parsed, so one
// manifest can serve several platforms:
//
//	operations:
//	  - name: add
//	    symbol: {{ if eq .platform.os "windows" }}add_win{{ else }}add{{ end }}
//
// The values available are .platform.os, .platform.arch, .module.name and
// .module.dir.
package template

import (
	"bytes"
	"fmt"
	"runtime"
	"text/template"

	"github.com/reglet-dev/extbridge/domain/ports"
)

type templateConfig struct {
	strict bool
}

func defaultTemplateConfig() templateConfig {
	return templateConfig{
		strict: true,
	}
}

// TemplateOption configures a GoTemplateEngine.
type TemplateOption func(*templateConfig)

// WithStrict enables/disables strict mode for missing keys.
// When enabled (default), rendering fails if a referenced key is missing.
func WithStrict(enabled bool) TemplateOption {
	return func(c *templateConfig) {
		c.strict = enabled
	}
}

// GoTemplateEngine implements TemplateEngine using text/template.
type GoTemplateEngine struct {
	config templateConfig
}

// NewGoTemplateEngine creates a new GoTemplateEngine.
func NewGoTemplateEngine(opts ...TemplateOption) ports.TemplateEngine {
	cfg := defaultTemplateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GoTemplateEngine{config: cfg}
}

// Values builds the template data for a module.
func Values(module, dir string) map[string]any {
	return map[string]any{
		"platform": map[string]any{"os": runtime.GOOS, "arch": runtime.GOARCH},
		"module":   map[string]any{"name": module, "dir": dir},
	}
}

// Render executes raw as a template over values. Input without template
// actions is returned unchanged.
func (e *GoTemplateEngine) Render(raw []byte, values map[string]any) ([]byte, error) {
	if !bytes.Contains(raw, []byte("{{")) {
		return raw, nil
	}

	tmpl := template.New("manifest")
	if e.config.strict {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		return nil, fmt.Errorf("failed to execute manifest template: %w", err)
	}
	return buf.Bytes(), nil
}
