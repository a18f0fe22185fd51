package entities

// FailurePolicy describes which return values an operation uses as an error
// sentinel. Foreign code cannot raise into Go, so failure has to be encoded in
// the result.
type FailurePolicy string

const (
	// FailNever treats every return value as success.
	FailNever FailurePolicy = "never"
	// FailNonZero treats any non-zero result as failure (errno style).
	FailNonZero FailurePolicy = "nonzero"
	// FailNegative treats results below zero as failure.
	FailNegative FailurePolicy = "negative"
	// FailZero treats zero, false or a NULL pointer as failure.
	FailZero FailurePolicy = "zero"
	// FailEmpty treats an empty string or buffer as failure.
	FailEmpty FailurePolicy = "empty"
)

// Valid reports whether p is a known policy. Empty means FailNever.
func (p FailurePolicy) Valid() bool {
	switch p {
	case "", FailNever, FailNonZero, FailNegative, FailZero, FailEmpty:
		return true
	}
	return false
}

// Applies reports whether p can be evaluated against results of type t.
func (p FailurePolicy) Applies(t TypeTag) bool {
	switch p {
	case "", FailNever:
		return true
	case FailNonZero, FailZero:
		return t.IsInteger() || t.IsFloat() || t == TypeBool || t == TypePtr
	case FailNegative:
		return t == TypeI32 || t == TypeI64 || t.IsFloat()
	case FailEmpty:
		return t == TypeString || t == TypeBytes
	}
	return false
}

// Failed reports whether result signals failure under p.
func (p FailurePolicy) Failed(result any) bool {
	switch p {
	case FailNonZero:
		f, ok := numeric(result)
		return ok && f != 0
	case FailZero:
		f, ok := numeric(result)
		return ok && f == 0
	case FailNegative:
		f, ok := numeric(result)
		return ok && f < 0
	case FailEmpty:
		switch v := result.(type) {
		case string:
			return v == ""
		case []byte:
			return len(v) == 0
		case nil:
			return true
		}
	}
	return false
}

// numeric widens integer, float and bool results for sentinel comparison.
// Only sign and zero-ness are inspected, so the float64 widening is exact
// for that purpose.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uintptr:
		if n != 0 {
			return 1, true
		}
		return 0, true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Operation declares one function exported by an extension.
type Operation struct {
	// Name is the identifier host code calls the operation by.
	Name string `json:"name" yaml:"name" validate:"required,identifier" jsonschema:"description=Name host code calls the operation by"`

	// Symbol is the exported symbol implementing the operation. Defaults to Name.
	Symbol string `json:"symbol,omitempty" yaml:"symbol,omitempty" validate:"omitempty,identifier" jsonschema:"description=Exported symbol; defaults to name"`

	// Params are the parameter type tags in call order.
	Params []TypeTag `json:"params" yaml:"params" validate:"dive,paramtag" jsonschema:"enum=bool,enum=i32,enum=i64,enum=u32,enum=u64,enum=f32,enum=f64,enum=string,enum=bytes,enum=ptr"`

	// Result is the result type tag; empty means void.
	Result TypeTag `json:"result,omitempty" yaml:"result,omitempty" validate:"omitempty,typetag" jsonschema:"enum=void,enum=bool,enum=i32,enum=i64,enum=u32,enum=u64,enum=f32,enum=f64,enum=string,enum=bytes,enum=ptr"`

	// FailWhen selects the error sentinel convention of the result.
	FailWhen FailurePolicy `json:"fail_when,omitempty" yaml:"fail_when,omitempty" validate:"omitempty,failpolicy" jsonschema:"enum=never,enum=nonzero,enum=negative,enum=zero,enum=empty"`
}

// SymbolName returns the symbol to resolve in the artifact.
func (o Operation) SymbolName() string {
	if o.Symbol != "" {
		return o.Symbol
	}
	return o.Name
}

// Signature returns the operation's shape with the result normalized.
func (o Operation) Signature() Signature {
	return Signature{Params: o.Params, Result: o.Result.OrVoid()}
}
