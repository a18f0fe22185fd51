package resolver

// SharedLibraryNames returns the file names a native extension called module
// may have on goos, most conventional first.
func SharedLibraryNames(goos, module string) []string {
	switch goos {
	case "darwin", "ios":
		return []string{"lib" + module + ".dylib", module + ".dylib", module + ".bundle"}
	case "windows":
		return []string{module + ".dll", "lib" + module + ".dll"}
	default:
		return []string{"lib" + module + ".so", module + ".so"}
	}
}

// PlatformDir is the per-platform subdirectory searched below the search
// root, e.g. linux_amd64.
func PlatformDir(goos, goarch string) string {
	return goos + "_" + goarch
}
