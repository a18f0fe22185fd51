package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// BuildSharedLibrary compiles the C file source into dir as the platform's
// shared library for module and returns its path. The test is skipped on
// platforms without dlopen support or without a C compiler.
func BuildSharedLibrary(t *testing.T, source, dir, module string) string {
	t.Helper()
	var name string
	switch runtime.GOOS {
	case "linux", "freebsd", "netbsd":
		name = "lib" + module + ".so"
	case "darwin":
		name = "lib" + module + ".dylib"
	default:
		t.Skip("no shared library tests on platform", runtime.GOOS)
	}
	if _, err := exec.LookPath("cc"); err != nil {
		t.Skip("no C compiler:", err)
	}
	src, err := filepath.Abs(source)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	out := filepath.Join(dir, name)
	cmd := exec.CommandContext(t.Context(), "cc", "-shared", "-fPIC", src, "-o", out)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("unable to compile shared library: %v\n%s", err, output)
	}
	return out
}
