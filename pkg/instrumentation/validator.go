package instrumentation

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// ValidationType selects how an option value is checked and how a raw
// environment string is coerced before it is checked.
type ValidationType int

const (
	ValidationArray ValidationType = iota + 1
	ValidationBoolean
	ValidationCallable
	ValidationInteger
	ValidationString
	ValidationEnum
)

func (t ValidationType) String() string {
	switch t {
	case ValidationArray:
		return "array"
	case ValidationBoolean:
		return "boolean"
	case ValidationCallable:
		return "callable"
	case ValidationInteger:
		return "integer"
	case ValidationString:
		return "string"
	case ValidationEnum:
		return "enum"
	default:
		return fmt.Sprintf("ValidationType(%d)", int(t))
	}
}

// Validator checks a candidate option value. It is one of three variants:
// a value type (TypeOf), membership in a fixed set (OneOf) or an arbitrary
// predicate (Predicate). The zero Validator is invalid and rejected by Define.
type Validator struct {
	kind      ValidationType
	members   map[string]struct{}
	predicate func(any) bool
}

// TypeOf accepts values of the given type. ValidationEnum is not a type and
// yields an invalid validator; use OneOf instead.
func TypeOf(t ValidationType) Validator {
	switch t {
	case ValidationArray, ValidationBoolean, ValidationCallable, ValidationInteger, ValidationString:
		return Validator{kind: t}
	default:
		return Validator{}
	}
}

// OneOf accepts exactly the listed values.
func OneOf(values ...string) Validator {
	members := make(map[string]struct{}, len(values))
	for _, v := range values {
		members[v] = struct{}{}
	}
	return Validator{kind: ValidationEnum, members: members}
}

// Predicate accepts values for which fn returns true. Options validated by a
// predicate cannot be overridden from the environment.
func Predicate(fn func(any) bool) Validator {
	if fn == nil {
		return Validator{}
	}
	return Validator{kind: ValidationCallable, predicate: fn}
}

// ValidationType reports the coercion used for environment overrides.
func (v Validator) ValidationType() ValidationType {
	return v.kind
}

func (v Validator) validate() error {
	if v.kind == 0 {
		return ErrInvalidValidator
	}
	if v.kind == ValidationEnum && v.members == nil {
		return ErrInvalidValidator
	}
	return nil
}

// Members returns the sorted enum members, or nil for non-enum validators.
func (v Validator) Members() []string {
	if v.members == nil {
		return nil
	}
	out := make([]string, 0, len(v.members))
	for m := range v.members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Accept reports whether value passes. A panicking predicate is reported as
// an error wrapping ErrCallbackPanicked and must be treated as a failure.
func (v Validator) Accept(value any) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("%w: validator: %v", ErrCallbackPanicked, r)
		}
	}()

	if v.predicate != nil {
		return v.predicate(value), nil
	}

	switch v.kind {
	case ValidationEnum:
		s, isString := asString(value)
		if !isString {
			return false, nil
		}
		_, ok = v.members[s]
		return ok, nil
	case ValidationArray:
		return isKind(value, reflect.Slice, reflect.Array), nil
	case ValidationBoolean:
		_, ok = value.(bool)
		return ok, nil
	case ValidationCallable:
		return isKind(value, reflect.Func) && !reflect.ValueOf(value).IsNil(), nil
	case ValidationInteger:
		return isKind(value,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64), nil
	case ValidationString:
		_, ok = value.(string)
		return ok, nil
	default:
		return false, ErrInvalidValidator
	}
}

func isKind(value any, kinds ...reflect.Kind) bool {
	if value == nil {
		return false
	}
	k := reflect.TypeOf(value).Kind()
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func asString(value any) (string, bool) {
	switch s := value.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	default:
		return "", false
	}
}

// coerce converts a raw environment string for the given validation type.
// Callable options cannot be expressed as strings and report ok=false.
func coerce(raw string, t ValidationType) (value any, ok bool) {
	switch t {
	case ValidationArray:
		parts := strings.Split(raw, ",")
		for len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		out := make([]string, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out, true
	case ValidationBoolean:
		return strings.EqualFold(strings.TrimSpace(raw), "true"), true
	case ValidationInteger:
		n, ok := leadingInt(raw)
		if !ok {
			// kept as text so the integer validator rejects it
			return strings.TrimSpace(raw), true
		}
		return n, true
	case ValidationString, ValidationEnum:
		return strings.TrimSpace(raw), true
	default:
		return nil, false
	}
}

// leadingInt parses an optionally signed run of leading digits, ignoring
// surrounding whitespace and underscores between digits. Input without a
// leading number yields 0. ok is false when the digits do not fit in an int.
func leadingInt(raw string) (n int, ok bool) {
	s := strings.TrimSpace(raw)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' && i > 0 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		d := int(c - '0')
		if n > (math.MaxInt-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	if neg {
		return -n, true
	}
	return n, true
}
