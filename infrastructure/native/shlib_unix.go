//go:build darwin || freebsd || linux || netbsd

package native

import "github.com/ebitengine/purego"

const platformSupported = true

// sharedLibrary is a dlopen'ed artifact.
type sharedLibrary struct {
	handle uintptr
}

// openSharedLibrary loads the file at path. RTLD_NOW makes unresolved
// dependencies fail here instead of at the first call.
func openSharedLibrary(path string) (*sharedLibrary, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	return &sharedLibrary{handle: h}, nil
}

// lookupSymbol returns the address of the named symbol.
func (so *sharedLibrary) lookupSymbol(name string) (uintptr, error) {
	return purego.Dlsym(so.handle, name)
}

// close releases the library from this process.
func (so *sharedLibrary) close() error {
	return purego.Dlclose(so.handle)
}

// registerFunc binds the function pointer fnPtr to the C function at addr.
func registerFunc(fnPtr any, addr uintptr) {
	purego.RegisterFunc(fnPtr, addr)
}
