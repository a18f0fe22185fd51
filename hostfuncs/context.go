package hostfuncs

import (
	"context"
)

// HostContext is the context handed to a handler. It names the callback
// being served and the extension module that invoked it.
type HostContext interface {
	context.Context

	// FunctionName is the callback name.
	FunctionName() string

	// ModuleName is the calling extension, or "" when unknown.
	ModuleName() string
}

type hostContext struct {
	context.Context
	funcName string
	module   string
}

func (c *hostContext) FunctionName() string { return c.funcName }

func (c *hostContext) ModuleName() string { return c.module }

type moduleKey struct{}

// WithModuleName records the calling module on ctx. The wasm backend sets it
// before each guest call.
func WithModuleName(ctx context.Context, module string) context.Context {
	return context.WithValue(ctx, moduleKey{}, module)
}

// ModuleNameFrom returns the module recorded by WithModuleName.
func ModuleNameFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(moduleKey{}).(string)
	return name, ok
}

// NewHostContext wraps ctx for a call of funcName.
func NewHostContext(ctx context.Context, funcName string) HostContext {
	module, _ := ModuleNameFrom(ctx)
	return &hostContext{Context: ctx, funcName: funcName, module: module}
}

// HostContextFrom returns ctx itself when it already is a HostContext.
func HostContextFrom(ctx context.Context, funcName string) HostContext {
	if hc, ok := ctx.(HostContext); ok {
		return hc
	}
	return NewHostContext(ctx, funcName)
}
