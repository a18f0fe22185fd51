//go:build !(darwin || freebsd || linux || netbsd)

package native

import (
	"fmt"
	"runtime"
)

const platformSupported = false

type sharedLibrary struct{}

func openSharedLibrary(string) (*sharedLibrary, error) {
	return nil, fmt.Errorf("shared libraries are not supported on %s", runtime.GOOS)
}

func (so *sharedLibrary) lookupSymbol(name string) (uintptr, error) {
	return 0, fmt.Errorf("symbol %s: shared libraries are not supported on %s", name, runtime.GOOS)
}

func (so *sharedLibrary) close() error {
	return nil
}

func registerFunc(any, uintptr) {
	panic("native: shared libraries are not supported on " + runtime.GOOS)
}
