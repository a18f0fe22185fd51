// Package validation checks load arguments and manifests before any artifact
// is touched. Structural rules live in validate struct tags on the entity
// types; the rules that span fields are checked here.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/reglet-dev/extbridge/domain/entities"
	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/domain/ports"
)

// identifierPattern matches C and wasm export identifiers we accept as
// module, operation and symbol names.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validate is shared: building a validator and its struct cache is costly.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "typetag", func(fl validator.FieldLevel) bool {
		return entities.TypeTag(fl.Field().String()).Valid()
	})
	mustRegister(v, "paramtag", func(fl validator.FieldLevel) bool {
		return entities.TypeTag(fl.Field().String()).ValidParam()
	})
	mustRegister(v, "failpolicy", func(fl validator.FieldLevel) bool {
		return entities.FailurePolicy(fl.Field().String()).Valid()
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"yaml", "json"} {
			if name, _, _ := strings.Cut(f.Tag.Get(key), ","); name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// ValidateSpec checks load arguments. Failures are InvalidSpec errors, except
// a search dir that does not exist, which is ArtifactNotFound.
func ValidateSpec(spec entities.ModuleSpec) error {
	err := validate.Struct(spec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Wrap(err, errs.KindInvalidSpec, errs.DomainLoader, "cannot validate load arguments")
	}
	for _, fe := range verrs {
		if fe.StructField() == "SearchDir" && fe.Tag() == "dir" {
			return errs.New(errs.KindArtifactNotFound, errs.DomainLoader, "search dir %q is not a readable directory", spec.SearchDir)
		}
	}
	return errs.New(errs.KindInvalidSpec, errs.DomainLoader, "%s", describe(verrs))
}

// ManifestValidator implements ports.ManifestValidator.
type ManifestValidator struct{}

// NewManifestValidator creates a manifest validator.
func NewManifestValidator() ports.ManifestValidator {
	return &ManifestValidator{}
}

// Validate applies the struct tags, then the cross-field rules: unique
// operation names, a fail_when policy that can be evaluated against the
// result type, and the init result shape.
func (v *ManifestValidator) Validate(manifest *entities.Manifest) (*entities.ValidationResult, error) {
	result := &entities.ValidationResult{Valid: true}
	if manifest == nil {
		return result, nil
	}

	if err := validate.Struct(manifest); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("cannot validate manifest: %w", err)
		}
		for _, fe := range verrs {
			result.Add(fieldPath(fe), message(fe))
		}
	}

	seen := make(map[string]bool, len(manifest.Operations))
	for i, op := range manifest.Operations {
		field := fmt.Sprintf("operations[%d]", i)
		if seen[op.Name] {
			result.Add(field+".name", fmt.Sprintf("duplicate operation %q", op.Name))
		}
		seen[op.Name] = true
		if op.FailWhen.Valid() && op.Result.Valid() && !op.FailWhen.Applies(op.Result.OrVoid()) {
			result.Add(field+".fail_when", fmt.Sprintf("%q cannot be evaluated on %s results", op.FailWhen, op.Result.OrVoid()))
		}
	}
	return result, nil
}

func describe(verrs validator.ValidationErrors) string {
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fieldPath(fe) + ": " + message(fe)
	}
	return strings.Join(parts, "; ")
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "identifier":
		return fmt.Sprintf("%q is not a valid identifier", fe.Value())
	case "typetag", "paramtag":
		return fmt.Sprintf("%q is not a valid type here", fe.Value())
	case "failpolicy":
		return fmt.Sprintf("%q is not a failure policy", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", fe.Value(), fe.Param())
	case "dir":
		return fmt.Sprintf("%q is not a directory", fe.Value())
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}
