package sqlist

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// KeyFunc maps a value to its ordering value. Returning nil leaves the value
// in natural order (its key is stored as NULL, and NULL sorts first).
//
// The result must be nil, a boolean, an integer or float (NaN excluded), a
// string or a byte slice, including named types with those underlying
// kinds. Strings compare bytewise.
//
// A KeyFunc must be pure and safe for concurrent use: Extend evaluates it on
// several values at once.
type KeyFunc[T any] func(T) any

// keyClass groups ordering values that compare with each other.
type keyClass int

const (
	classNull keyClass = iota
	classNumber
	classText
	classBlob
)

func (c keyClass) String() string {
	switch c {
	case classNull:
		return "null"
	case classNumber:
		return "number"
	case classText:
		return "text"
	default:
		return "blob"
	}
}

// normalizeKey converts an ordering value to the form stored in the key
// column: nil, int64, float64, string or []byte.
func normalizeKey(k any) (any, error) {
	switch v := k.(type) {
	case nil:
		return nil, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", string(v))
		}
		return f, nil
	}

	rv := reflect.ValueOf(k)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("unsigned key %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) {
			return nil, fmt.Errorf("NaN key")
		}
		return f, nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("unsupported key type %T", k)
}

func classOf(k any) keyClass {
	switch k.(type) {
	case nil:
		return classNull
	case int64, float64:
		return classNumber
	case string:
		return classText
	default:
		return classBlob
	}
}

// compareKeys orders two normalized keys. NULL sorts before everything;
// numbers compare numerically across int64 and float64; text and blobs
// compare bytewise. Keys of different classes are not comparable.
func compareKeys(a, b any) (int, error) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}

	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y), nil
		case float64:
			return cmp.Compare(float64(x), y), nil
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, float64(y)), nil
		case float64:
			return cmp.Compare(x, y), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case []byte:
		if y, ok := b.([]byte); ok {
			return bytes.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("%s key against %s key", classOf(a), classOf(b))
}

// computeKey applies the configured ordering function to v.
func (l *List[T]) computeKey(op string, fn KeyFunc[T], v T) (any, error) {
	if fn == nil {
		return nil, nil
	}
	k, err := normalizeKey(fn(v))
	if err != nil {
		return nil, invalidArgument(op, "ordering function result", err)
	}
	return k, nil
}

// sortKey derives the comparison key for a sort. Without a function the
// value itself is the key.
func sortKey[T any](fn KeyFunc[T], v T) (any, error) {
	var raw any = v
	if fn != nil {
		raw = fn(v)
	}
	k, err := normalizeKey(raw)
	if err != nil {
		return nil, notComparable("sort", err)
	}
	return k, nil
}
