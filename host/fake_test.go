package host_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/extbridge/domain/entities"
	"github.com/reglet-dev/extbridge/domain/ports"
)

// fakeBackend opens <name>.fake files and serves functions from fns.
type fakeBackend struct {
	fns       map[string]ports.Function
	opened    atomic.Int32
	closed    atomic.Int32
	initErr   error
	reentrant bool

	// When set, Initialize closes initStarted and blocks on initRelease.
	initStarted chan struct{}
	initRelease chan struct{}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Candidates(module string) []string {
	return []string{module + ".fake"}
}

func (b *fakeBackend) Open(context.Context, string) (ports.Library, error) {
	b.opened.Add(1)
	return &fakeLibrary{backend: b}, nil
}

type fakeLibrary struct {
	backend *fakeBackend
}

func (l *fakeLibrary) Initialize(context.Context, string, *entities.Manifest) error {
	if l.backend.initStarted != nil {
		close(l.backend.initStarted)
		<-l.backend.initRelease
	}
	return l.backend.initErr
}

func (l *fakeLibrary) Exports() []entities.Operation {
	return []entities.Operation{{Name: "work", Params: []entities.TypeTag{entities.TypeI32}, Result: entities.TypeI32}}
}

func (l *fakeLibrary) Bind(op entities.Operation) (ports.Function, error) {
	return l.backend.fns[op.Name], nil
}

func (l *fakeLibrary) Reentrant() bool { return l.backend.reentrant }

func (l *fakeLibrary) Close(context.Context) error {
	l.backend.closed.Add(1)
	return nil
}

func fakeArtifact(t *testing.T, module string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, module+".fake"), nil, 0o644))
	return dir
}

// concurrencyProbe records the highest number of overlapping calls.
type concurrencyProbe struct {
	mu      sync.Mutex
	current int
	max     int
}

func (p *concurrencyProbe) enter() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	if p.current > p.max {
		p.max = p.current
	}
}

func (p *concurrencyProbe) leave() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current--
}
