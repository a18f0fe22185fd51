// Package errors provides the distinguished error type of the bridge.
// Every failure surfaced by or through the adapter layer is an *Error with a
// Kind and an originating Domain. Errors support errors.Is against the Err*
// sentinels (matching by kind) and errors.As into *Error.
package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/reglet-dev/extbridge/domain/entities"
)

// Kind classifies a failure.
type Kind string

const (
	// KindArtifactNotFound: no artifact, or more than one, matched the module name.
	KindArtifactNotFound Kind = "artifact_not_found"
	// KindEntryPointNotFound: the artifact opened but the entry symbol is missing.
	KindEntryPointNotFound Kind = "entry_point_not_found"
	// KindNativeInitFailure: the artifact could not be opened or its entry point signalled failure.
	KindNativeInitFailure Kind = "native_init_failure"
	// KindSymbolSignatureMismatch: declared and actual signatures disagree,
	// at load time or for the arguments of a call.
	KindSymbolSignatureMismatch Kind = "symbol_signature_mismatch"
	// KindNativeCallFailure: an exported operation failed during a call.
	KindNativeCallFailure Kind = "native_call_failure"
	// KindNotLoaded: a call was made on a handle that is not in the loaded state.
	KindNotLoaded Kind = "not_loaded"
	// KindInvalidSpec: the load arguments or the manifest file are malformed.
	KindInvalidSpec Kind = "invalid_spec"
)

// Fatal reports whether errors of kind k end the module's lifetime. Load-time
// kinds are fatal; call-time kinds are returned to the caller to handle.
func (k Kind) Fatal() bool {
	switch k {
	case KindArtifactNotFound, KindEntryPointNotFound, KindNativeInitFailure, KindInvalidSpec:
		return true
	}
	return false
}

// Domain tags the layer a failure originated in.
type Domain string

const (
	DomainLoader   Domain = "loader"
	DomainResolver Domain = "resolver"
	DomainManifest Domain = "manifest"
	DomainNative   Domain = "native"
	DomainWasm     Domain = "wasm"
)

// Sentinels for errors.Is. Only the kind is compared.
var (
	ErrArtifactNotFound        = &Error{Kind: KindArtifactNotFound}
	ErrEntryPointNotFound      = &Error{Kind: KindEntryPointNotFound}
	ErrNativeInitFailure       = &Error{Kind: KindNativeInitFailure}
	ErrSymbolSignatureMismatch = &Error{Kind: KindSymbolSignatureMismatch}
	ErrNativeCallFailure       = &Error{Kind: KindNativeCallFailure}
	ErrNotLoaded               = &Error{Kind: KindNotLoaded}
	ErrInvalidSpec             = &Error{Kind: KindInvalidSpec}
)

// Error is a failure of the extension bridge.
type Error struct {
	Err       error
	Kind      Kind
	Domain    Domain
	Module    string
	Operation string
	Message   string
}

// New creates an Error of the given kind.
func New(kind Kind, domain Domain, format string, args ...any) *Error {
	return &Error{Kind: kind, Domain: domain, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind caused by err.
func Wrap(err error, kind Kind, domain Domain, format string, args ...any) *Error {
	return &Error{Err: err, Kind: kind, Domain: domain, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Module != "" {
		b.WriteString(e.Module)
		b.WriteString(": ")
	}
	if e.Operation != "" {
		b.WriteString(e.Operation)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Fatal reports whether the error ends the module's lifetime.
func (e *Error) Fatal() bool {
	return e.Kind.Fatal()
}

// WithModule returns a copy of e attributed to module.
func (e *Error) WithModule(module string) *Error {
	c := *e
	c.Module = module
	return &c
}

// WithOperation returns a copy of e attributed to operation op.
func (e *Error) WithOperation(op string) *Error {
	c := *e
	c.Operation = op
	return &c
}

// ToErrorDetail implements DetailedError.
func (e *Error) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{
		Kind:      string(e.Kind),
		Domain:    string(e.Domain),
		Module:    e.Module,
		Operation: e.Operation,
		Message:   e.Message,
		Fatal:     e.Fatal(),
	}
	if e.Err != nil {
		d.Wrapped = ToErrorDetail(e.Err)
	}
	return d
}

// DetailedError is implemented by errors that can describe themselves as a
// structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to the structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var d *entities.ErrorDetail
	if stdErrors.As(err, &d) {
		return d
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{Kind: "internal", Message: err.Error()}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stdErrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Attribute sets module (and op when non-empty) on every *Error without one.
// Errors of other types are wrapped as kind.
func Attribute(err error, kind Kind, domain Domain, module, op string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if !stdErrors.As(err, &e) {
		e = Wrap(err, kind, domain, "")
	}
	if e.Module == "" {
		e = e.WithModule(module)
	}
	if e.Operation == "" && op != "" {
		e = e.WithOperation(op)
	}
	return e
}
