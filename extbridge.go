// Package extbridge loads compiled extensions by name and calls the
// operations they export.
//
// The functions in this package use a process-wide default Loader. Programs
// that need several independent loaders, custom backends or host callbacks
// use the host package directly.
//
//	mod, err := extbridge.Load(ctx, "mymodule", "./ext", "")
//	if err != nil {
//		log.Fatal(err)
//	}
//	sum, err := extbridge.Expect[int32](mod.Call(ctx, "add", 2, 3))
package extbridge

import (
	"context"
	"sync"

	"github.com/reglet-dev/extbridge/host"
)

var (
	defaultMu     sync.Mutex
	defaultLoader *host.Loader
)

// Default returns the process-wide Loader, creating it on first use.
func Default() *host.Loader {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLoader == nil {
		defaultLoader = host.NewLoader()
	}
	return defaultLoader
}

// SetDefault replaces the process-wide Loader. It must be called before the
// first Load.
func SetDefault(l *host.Loader) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLoader = l
}

// Load initializes the extension moduleName found below searchDir by calling
// entryPoint, Init_<moduleName> when empty. Repeated loads return the first
// outcome.
func Load(ctx context.Context, moduleName, searchDir, entryPoint string) (*host.Module, error) {
	return Default().Load(ctx, ModuleSpec{Name: moduleName, SearchDir: searchDir, EntryPoint: entryPoint})
}

// State reports the load state of moduleName below searchDir on the default
// Loader.
func State(moduleName, searchDir, entryPoint string) LoadState {
	return Default().State(ModuleSpec{Name: moduleName, SearchDir: searchDir, EntryPoint: entryPoint})
}

// Call invokes op on a loaded module.
func Call(ctx context.Context, m *host.Module, op string, args ...any) (any, error) {
	return m.Call(ctx, op, args...)
}

// Close releases every extension loaded through the default Loader. Later
// loads through the package functions fail with NotLoaded.
func Close(ctx context.Context) error {
	return Default().Close(ctx)
}
