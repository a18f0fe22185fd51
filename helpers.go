package extbridge

import (
	"fmt"

	errs "github.com/reglet-dev/extbridge/domain/errors"
)

// Expect asserts the result of a Call to T. It passes a call error through
// and reports a result of another type as SymbolSignatureMismatch.
func Expect[T any](out any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	v, ok := out.(T)
	if !ok {
		return zero, errs.New(errs.KindSymbolSignatureMismatch, errs.DomainLoader, "result is %T, want %T", out, zero)
	}
	return v, nil
}

// GetInt widens any integer result to int64.
// Returns false for results that are not integers.
func GetInt(out any) (int64, bool) {
	switch n := out.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// GetFloat widens a float result to float64.
func GetFloat(out any) (float64, bool) {
	switch n := out.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// GetString returns a string or bytes result as a string.
func GetString(out any) (string, bool) {
	switch s := out.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// GetBool returns a bool result.
func GetBool(out any) (bool, bool) {
	b, ok := out.(bool)
	return b, ok
}

// MustGetInt is GetInt for callers that require an integer result.
func MustGetInt(out any) (int64, error) {
	n, ok := GetInt(out)
	if !ok {
		return 0, fmt.Errorf("result %v (%T) is not an integer", out, out)
	}
	return n, nil
}

// GetIntDefault returns the integer result or defaultValue.
func GetIntDefault(out any, defaultValue int64) int64 {
	n, ok := GetInt(out)
	if !ok {
		return defaultValue
	}
	return n
}
