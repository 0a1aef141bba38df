// Package keys provides ordering functions for lists.
//
// Each constructor returns a plain func(T) any, assignable to
// sqlist.KeyFunc[T]. All of them are safe for concurrent use.
package keys

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Len orders strings by length in bytes.
func Len[S ~string](s S) any { return len(s) }

// Identity orders values by themselves.
func Identity[T any](v T) any { return v }

// Fold orders strings case-insensitively using Unicode full case folding.
func Fold() func(string) any {
	var mu sync.Mutex
	c := cases.Fold()
	return func(s string) any {
		mu.Lock()
		defer mu.Unlock()
		return c.String(s)
	}
}

// Normalized orders strings by their NFC form, so canonically equivalent
// spellings sort together.
func Normalized(s string) any { return norm.NFC.String(s) }

// Collate orders strings by the collation rules of a language. The key is
// the collator's binary sort key, so SQLite's bytewise comparison yields
// linguistic order.
func Collate(tag language.Tag, opts ...collate.Option) func(string) any {
	var (
		mu  sync.Mutex
		buf collate.Buffer
	)
	c := collate.New(tag, opts...)
	return func(s string) any {
		mu.Lock()
		defer mu.Unlock()
		k := c.KeyFromString(&buf, s)
		out := make([]byte, len(k))
		copy(out, k)
		buf.Reset()
		return out
	}
}

// Field orders map values or structs by one named field. A missing field
// yields nil, which sorts first.
func Field(name string) func(any) any {
	return func(v any) any {
		switch m := v.(type) {
		case map[string]any:
			return m[name]
		case map[any]any:
			return m[name]
		}

		rv := reflect.ValueOf(v)
		for rv.Kind() == reflect.Pointer && !rv.IsNil() {
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct {
			return nil
		}
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			return nil
		}
		return f.Interface()
	}
}

// Named returns an ordering function over dynamically typed values, for
// configuration files and the command line:
//
//	""            natural order (nil function)
//	"identity"    the value itself
//	"len"         length of a string, slice or map
//	"fold"        case-folded string
//	"nfc"         NFC-normalized string
//	"collate:<t>" collation key for BCP 47 tag t, e.g. "collate:de"
//	"field:<f>"   field f of a map or struct
func Named(name string) (func(any) any, error) {
	kind, arg, _ := strings.Cut(name, ":")
	switch kind {
	case "":
		return nil, nil
	case "identity":
		return Identity[any], nil
	case "len":
		return length, nil
	case "fold":
		return onString(Fold()), nil
	case "nfc":
		return onString(Normalized), nil
	case "collate":
		tag, err := language.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", name, err)
		}
		return onString(Collate(tag)), nil
	case "field":
		if arg == "" {
			return nil, fmt.Errorf("key %q: missing field name", name)
		}
		return Field(arg), nil
	default:
		return nil, fmt.Errorf("unknown key %q", name)
	}
}

func length(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len()
	}
	return nil
}

// onString applies fn to string values and passes anything else through, so
// a mixed list surfaces as not comparable instead of panicking.
func onString(fn func(string) any) func(any) any {
	return func(v any) any {
		if s, ok := v.(string); ok {
			return fn(s)
		}
		return v
	}
}
