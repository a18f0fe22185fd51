// Package host loads compiled extensions into the process and exposes their
// operations to Go code.
//
// A Loader resolves an artifact by module name below a search directory,
// opens it with the matching backend (a C ABI shared library or a
// WebAssembly module), runs its entry point once and binds every declared
// operation. The resulting Module handle marshals arguments by the declared
// signature on each Call:
//
//	loader := host.NewLoader()
//	defer loader.Close(ctx)
//
//	mod, err := loader.Load(ctx, entities.ModuleSpec{Name: "mymodule", SearchDir: "./ext"})
//	if err != nil {
//		return err
//	}
//	sum, err := mod.Call(ctx, "add", 2, 3)
//
// Loading is idempotent per (name, directory, entry point): repeating a load
// returns the first outcome without re-running native initialization.
package host
