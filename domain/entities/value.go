package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Coerce converts a host value into the Go representation of tag:
// bool, int32, int64, uint32, uint64, float32, float64, string, []byte or
// uintptr. Integers are range checked. Strings are parsed for numeric and
// bool tags so command line arguments can be passed through unchanged.
func Coerce(tag TypeTag, v any) (any, error) {
	switch tag {
	case TypeBool:
		return asBool(v)
	case TypeI32:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("value %d overflows i32", n)
		}
		return int32(n), nil
	case TypeI64:
		return asInt64(v)
	case TypeU32:
		n, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		if n > math.MaxUint32 {
			return nil, fmt.Errorf("value %d overflows u32", n)
		}
		return uint32(n), nil
	case TypeU64:
		return asUint64(v)
	case TypeF32:
		f, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			return nil, fmt.Errorf("value %g overflows f32", f)
		}
		return float32(f), nil
	case TypeF64:
		return asFloat64(v)
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		case fmt.Stringer:
			return s.String(), nil
		}
	case TypeBytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
	case TypePtr:
		switch p := v.(type) {
		case uintptr:
			return p, nil
		case nil:
			return uintptr(0), nil
		}
		n, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		return uintptr(n), nil
	default:
		return nil, fmt.Errorf("type %q cannot be passed as an argument", tag)
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, tag)
}

func asBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	}
	n, err := asInt64(v)
	if err != nil {
		return false, fmt.Errorf("cannot use %T as bool", v)
	}
	return n != 0, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows i64", n)
		}
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows i64", n)
		}
		return int64(n), nil
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 0, 64)
	}
	return 0, fmt.Errorf("cannot use %T as integer", v)
}

func asUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case uintptr:
		return uint64(n), nil
	case string:
		return strconv.ParseUint(n, 0, 64)
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	}
	i, err := asInt64(v)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("negative value %d for unsigned type", i)
	}
	return uint64(i), nil
}

func asFloat64(v any) (float64, error) {
	switch f := v.(type) {
	case float32:
		return float64(f), nil
	case float64:
		return f, nil
	case json.Number:
		return f.Float64()
	case string:
		return strconv.ParseFloat(f, 64)
	}
	i, err := asInt64(v)
	if err != nil {
		return 0, fmt.Errorf("cannot use %T as float", v)
	}
	return float64(i), nil
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("value %v is not an integer", f)
	}
	return int64(f), nil
}
