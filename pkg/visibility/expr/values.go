package expr

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Lookup walks a dot path through nested maps and slices. It yields nil as
// soon as any segment is missing; it never panics on unexpected shapes.
func Lookup(values map[string]any, path string) any {
	if values == nil {
		return nil
	}
	if path == "" {
		return nil
	}

	var current any = values
	for _, part := range strings.Split(path, ".") {
		next, ok := step(current, part)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func step(current any, key string) (any, bool) {
	switch typed := current.(type) {
	case nil:
		return nil, false
	case map[string]any:
		v, ok := typed[key]
		return v, ok
	case map[string]string:
		v, ok := typed[key]
		return v, ok
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(typed) {
			return nil, false
		}
		return typed[idx], true
	case []string:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(typed) {
			return nil, false
		}
		return typed[idx], true
	}

	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	default:
		return nil, false
	}
}

// Truthy reports whether value counts as true in a boolean position. Empty
// strings, zero, NaN, false and nil are false; every other value, including
// empty collections, is true.
func Truthy(value any) bool {
	switch v := normalize(value).(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	default:
		return true
	}
}

// LooseEqual compares two values with coercing equality: numbers, numeric
// strings and booleans compare by numeric value, nil equals only nil, and
// composite values are equal only when they are the same reference.
func LooseEqual(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case float64:
		switch bv := b.(type) {
		case float64:
			return av == bv
		case string:
			n, ok := stringToNumber(bv)
			return ok && av == n
		case bool:
			return av == boolToNumber(bv)
		}
		return false
	case string:
		switch bv := b.(type) {
		case string:
			return av == bv
		case float64:
			n, ok := stringToNumber(av)
			return ok && n == bv
		case bool:
			n, ok := stringToNumber(av)
			return ok && n == boolToNumber(bv)
		}
		return false
	case bool:
		switch bv := b.(type) {
		case bool:
			return av == bv
		case float64:
			return boolToNumber(av) == bv
		case string:
			n, ok := stringToNumber(bv)
			return ok && boolToNumber(av) == n
		}
		return false
	}

	return sameReference(a, b)
}

// ToNumber coerces value for relational comparison. Strings use numeric
// parsing (blank strings are zero), booleans are 1 or 0. Anything else,
// including nil, is not a number.
func ToNumber(value any) (float64, bool) {
	switch v := normalize(value).(type) {
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case bool:
		return boolToNumber(v), true
	case string:
		return stringToNumber(v)
	default:
		return 0, false
	}
}

// ToString renders value the way it would appear when interpolated into
// text.
func ToString(value any) string {
	switch v := normalize(value).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(value)
	}
}

// normalize folds the numeric kinds into float64 so comparisons only deal
// with a handful of shapes.
func normalize(value any) any {
	switch v := value.(type) {
	case nil, bool, string, float64:
		return v
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []byte:
		return string(v)
	default:
		return value
	}
}

func boolToNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func stringToNumber(s string) (float64, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, true
	}
	return parseNumber(s)
}

// parseNumber accepts decimal notation with optional sign, fraction and
// exponent, plus the Infinity keyword and 0x/0o/0b integer prefixes.
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return 0, false
			}
			return float64(n), true
		}
	}

	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

func sameReference(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Func, reflect.Chan:
		if ra.Kind() == reflect.Slice && ra.Len() != rb.Len() {
			return false
		}
		return ra.Pointer() == rb.Pointer()
	default:
		if ra.Type().Comparable() {
			return safeEqual(a, b)
		}
		return false
	}
}

// safeEqual guards against interface fields holding uncomparable values.
func safeEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}
