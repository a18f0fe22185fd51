package entities

import "fmt"

// EntryPointPrefix is prepended to the module name to form the default
// initialization symbol.
const EntryPointPrefix = "Init_"

// ModuleSpec is the argument triple of a load: which module, where to look
// for it and which symbol initializes it.
type ModuleSpec struct {
	// Name is the symbolic module name used to derive artifact file names.
	Name string `json:"name" validate:"required,identifier"`

	// SearchDir is the root directory searched for the artifact.
	SearchDir string `json:"search_dir" validate:"required,dir"`

	// EntryPoint is the initialization symbol. Empty means Init_<Name>.
	EntryPoint string `json:"entry_point,omitempty" validate:"omitempty,identifier"`
}

// Entry returns the entry point symbol, applying the Init_<name> default.
func (s ModuleSpec) Entry() string {
	if s.EntryPoint != "" {
		return s.EntryPoint
	}
	return EntryPointPrefix + s.Name
}

// Key identifies the ModuleSpec for load-once bookkeeping. Callers normalize
// SearchDir to an absolute path first so equivalent specs share a key.
func (s ModuleSpec) Key() string {
	return s.Name + "\x00" + s.SearchDir + "\x00" + s.Entry()
}

// LoadState is the lifecycle position of a module handle.
type LoadState int

const (
	// StateUnloaded is the zero state: no load has completed.
	StateUnloaded LoadState = iota
	// StateLoaded means the entry point ran and operations are bound.
	StateLoaded
	// StateFailed means the single load attempt failed.
	StateFailed
	// StateClosed means the handle's loader was closed.
	StateClosed
)

func (s LoadState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

// MarshalText renders the state by name.
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Artifact is a resolved extension file together with the backend able to
// open it.
type Artifact struct {
	Path    string `json:"path"`
	Backend string `json:"backend"`
}

// Candidate is a file name a backend accepts for a module.
type Candidate struct {
	FileName string
	Backend  string
}

// ModuleInfo is a read-only description of a module handle.
type ModuleInfo struct {
	Name       string      `json:"name"`
	SearchDir  string      `json:"search_dir"`
	EntryPoint string      `json:"entry_point"`
	Artifact   Artifact    `json:"artifact"`
	State      LoadState   `json:"state"`
	Reentrant  bool        `json:"reentrant"`
	Operations []Operation `json:"operations"`
}
