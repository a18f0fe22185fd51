package host

import (
	"context"
	"sync"

	"github.com/reglet-dev/extbridge/domain/entities"
)

// Lazy returns an accessor that loads spec on first use with a Loader built
// from opts. Every call returns the outcome of that first load; the context
// of later calls is ignored.
func Lazy(spec entities.ModuleSpec, opts ...LoaderOption) func(ctx context.Context) (*Module, error) {
	var (
		once sync.Once
		mod  *Module
		err  error
	)
	return func(ctx context.Context) (*Module, error) {
		once.Do(func() {
			mod, err = NewLoader(opts...).Load(ctx, spec)
		})
		return mod, err
	}
}

// MustLoad is like Load but panics with the load error. It is meant for
// package initialization, where a missing extension is fatal.
func MustLoad(ctx context.Context, loader *Loader, spec entities.ModuleSpec) *Module {
	mod, err := loader.Load(ctx, spec)
	if err != nil {
		panic(err)
	}
	return mod
}
