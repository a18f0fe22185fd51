package native

import (
	"path/filepath"

	"github.com/reglet-dev/extbridge/host/registry"
)

// entryPoints records every entry point run in this process, keyed by the
// library's real path and the symbol. The dynamic linker hands every dlopen
// of a path the same image, so its initialized state is process-wide too.
// A library whose entry point succeeded keeps one extra reference and is
// never unloaded.
var entryPoints = registry.New[string, *sharedLibrary]()

func entryPointKey(path, entryPoint string) string {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	return path + "\x00" + entryPoint
}
