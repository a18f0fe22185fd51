package entities

// Manifest declares the binary interface of an extension: how its entry point
// is called and the signature of every exported operation. It is read from a
// sidecar YAML file next to the artifact.
type Manifest struct {
	// Name is informational; when set it must match the module name.
	Name string `json:"name,omitempty" yaml:"name,omitempty" validate:"omitempty,identifier"`

	// Description is free text shown by inspect.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Reentrant declares that operations may run concurrently. When false,
	// the bridge serializes every call into the module.
	Reentrant bool `json:"reentrant,omitempty" yaml:"reentrant,omitempty"`

	// LastError names an exported const char* (void) function returning the
	// message of the most recent failure.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty" validate:"omitempty,identifier"`

	// Init describes the entry point signature.
	Init InitSpec `json:"init,omitempty" yaml:"init,omitempty"`

	// Operations are the exported functions callable from host code.
	Operations []Operation `json:"operations,omitempty" yaml:"operations,omitempty" validate:"dive"`
}

// InitSpec is the shape of the entry point.
type InitSpec struct {
	// PassPath passes the artifact directory as the only argument.
	PassPath bool `json:"pass_path,omitempty" yaml:"pass_path,omitempty"`

	// Result is void or i32. A non-zero i32 signals initialization failure.
	Result TypeTag `json:"result,omitempty" yaml:"result,omitempty" validate:"omitempty,oneof=void i32" jsonschema:"enum=void,enum=i32"`
}

// Operation returns the declared operation called name.
func (m *Manifest) Operation(name string) (Operation, bool) {
	if m == nil {
		return Operation{}, false
	}
	for _, op := range m.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// Declared reports whether the manifest lists operations explicitly.
func (m *Manifest) Declared() bool {
	return m != nil && len(m.Operations) > 0
}
