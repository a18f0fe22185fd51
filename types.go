package extbridge

import (
	"github.com/reglet-dev/extbridge/domain/entities"
	errs "github.com/reglet-dev/extbridge/domain/errors"
)

// ModuleSpec is re-exported from entities.
type ModuleSpec = entities.ModuleSpec

// Error is re-exported from the errors domain.
// Kinds: "artifact_not_found", "entry_point_not_found", "native_init_failure",
// "symbol_signature_mismatch", "native_call_failure", "not_loaded", "invalid_spec"
type Error = errs.Error

// LoadState is the lifecycle position of a module handle.
type LoadState = entities.LoadState

// ErrorDetail is the structured wire form of an Error.
type ErrorDetail = entities.ErrorDetail

// Sentinels for errors.Is.
var (
	ErrArtifactNotFound        = errs.ErrArtifactNotFound
	ErrEntryPointNotFound      = errs.ErrEntryPointNotFound
	ErrNativeInitFailure       = errs.ErrNativeInitFailure
	ErrSymbolSignatureMismatch = errs.ErrSymbolSignatureMismatch
	ErrNativeCallFailure       = errs.ErrNativeCallFailure
	ErrNotLoaded               = errs.ErrNotLoaded
	ErrInvalidSpec             = errs.ErrInvalidSpec
)

// ToErrorDetail converts err to its structured form.
func ToErrorDetail(err error) *ErrorDetail {
	return errs.ToErrorDetail(err)
}

// Version of the module.
const Version = "0.1.0-alpha"
