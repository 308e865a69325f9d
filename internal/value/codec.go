package value

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/notelog/internal/schema"
)

var (
	datePattern        = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	numberPattern      = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?$`)
	looseSemverPattern = regexp.MustCompile(`^\d+(?:\.\d+(?:\.\d+)?)?(?:-[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?$`)
)

// Errors is an ordered list of human-readable decode failures.
type Errors []string

func (e Errors) Error() string {
	return strings.Join(e, "; ")
}

// Descriptor returns the expected-type text used in decode error messages.
func Descriptor(f schema.Field) string {
	if f.Type == schema.TypeString && len(f.Enum) > 0 {
		alts := make([]string, len(f.Enum))
		for i, e := range f.Enum {
			alts[i] = strconv.Quote(e)
		}
		return strings.Join(alts, " | ")
	}
	switch f.Type {
	case schema.TypeString:
		return "string"
	case schema.TypeBoolean:
		return "boolean"
	case schema.TypeNumber:
		return "number"
	case schema.TypeDate:
		return "date(YYYY-MM-DD)"
	case schema.TypeSemver:
		return "semver(major.minor.patch[-prerelease])"
	case schema.TypeFFVersion:
		return "ffversion(marketing.major.minor[-patch])"
	}
	panic(fmt.Sprintf("value: unknown field type %d", int(f.Type)))
}

func invalid(f schema.Field, raw any) string {
	return fmt.Sprintf("invalid value %s, expected %s", render(raw), Descriptor(f))
}

func render(raw any) string {
	if b, err := json.Marshal(raw); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", raw)
}

// Decode converts a raw header value, as produced by a YAML decoder, into the
// typed value of f. Every invalid list element is reported, in order.
func Decode(f schema.Field, raw any) (Value, error) {
	if !f.List {
		v, msg := decodeOne(f, raw)
		if msg != "" {
			return nil, Errors{msg}
		}
		return v, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, Errors{fmt.Sprintf("invalid value %s, expected list of %s", render(raw), Descriptor(f))}
	}
	list := List{Elem: f.Type, Items: make([]Value, 0, len(items))}
	var errs Errors
	for _, item := range items {
		v, msg := decodeOne(f, item)
		if msg != "" {
			errs = append(errs, msg)
			continue
		}
		list.Items = append(list.Items, v)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return list, nil
}

func decodeOne(f schema.Field, raw any) (Value, string) {
	switch f.Type {
	case schema.TypeString:
		s, ok := raw.(string)
		if !ok || !inEnum(f, s) {
			return nil, invalid(f, raw)
		}
		return String(s), ""
	case schema.TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, invalid(f, raw)
		}
		return Boolean(b), ""
	case schema.TypeNumber:
		n, ok := toFloat(raw)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, invalid(f, raw)
		}
		return Number(n), ""
	case schema.TypeDate:
		switch r := raw.(type) {
		case string:
			if d, err := ParseDate(r); err == nil {
				return d, ""
			}
		case time.Time:
			if r.Equal(r.Truncate(24 * time.Hour)) {
				return DateOf(r), ""
			}
		}
		return nil, invalid(f, raw)
	case schema.TypeSemver, schema.TypeFFVersion:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid(f, raw)
		}
		v, err := parseText(f, s)
		if err != nil {
			return nil, invalid(f, raw)
		}
		return v, ""
	}
	panic(fmt.Sprintf("value: unknown field type %d", int(f.Type)))
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}

func inEnum(f schema.Field, s string) bool {
	if len(f.Enum) == 0 {
		return true
	}
	for _, e := range f.Enum {
		if e == s {
			return true
		}
	}
	return false
}

// DecodeFromString decodes one element of f's base type from text, as typed
// on a command line or in a query. Booleans accept only "true" and "false".
func DecodeFromString(f schema.Field, s string) (Value, error) {
	v, err := parseText(f, s)
	if err != nil {
		return nil, Errors{invalid(f, s)}
	}
	return v, nil
}

// DecodeFromStrings decodes a full field value from text. List fields decode
// each element and report every failure; other fields need exactly one string.
func DecodeFromStrings(f schema.Field, ss []string) (Value, error) {
	if !f.List {
		if len(ss) != 1 {
			return nil, Errors{fmt.Sprintf("expected a single value for %s, got %d", Descriptor(f), len(ss))}
		}
		return DecodeFromString(f, ss[0])
	}
	list := List{Elem: f.Type, Items: make([]Value, 0, len(ss))}
	var errs Errors
	for _, s := range ss {
		v, err := parseText(f, s)
		if err != nil {
			errs = append(errs, invalid(f, s))
			continue
		}
		list.Items = append(list.Items, v)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return list, nil
}

func parseText(f schema.Field, s string) (Value, error) {
	switch f.Type {
	case schema.TypeString:
		if !inEnum(f, s) {
			return nil, fmt.Errorf("%q is not one of %v", s, f.Enum)
		}
		return String(s), nil
	case schema.TypeBoolean:
		switch s {
		case "true":
			return Boolean(true), nil
		case "false":
			return Boolean(false), nil
		}
		return nil, fmt.Errorf("%q is not a boolean", s)
	case schema.TypeNumber:
		if !numberPattern.MatchString(s) {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%q is not a finite number", s)
		}
		return Number(n), nil
	case schema.TypeDate:
		return ParseDate(s)
	case schema.TypeSemver:
		return ParseSemver(s)
	case schema.TypeFFVersion:
		return ParseFFVersion(s)
	}
	panic(fmt.Sprintf("value: unknown field type %d", int(f.Type)))
}

// Encode converts a typed value back to its raw header form. It is the
// inverse of Decode.
func Encode(f schema.Field, v Value) any {
	if l, ok := v.(List); ok {
		out := make([]any, len(l.Items))
		for i, item := range l.Items {
			out[i] = encodeOne(item)
		}
		return out
	}
	return encodeOne(v)
}

func encodeOne(v Value) any {
	switch t := v.(type) {
	case String:
		return string(t)
	case Boolean:
		return bool(t)
	case Number:
		return float64(t)
	case Date, Semver, FFVersion:
		return t.String()
	}
	panic(fmt.Sprintf("value: cannot encode %T", v))
}

// EncodeToStrings renders a value as canonical text, one string per list item.
func EncodeToStrings(f schema.Field, v Value) []string {
	if l, ok := v.(List); ok {
		out := make([]string, len(l.Items))
		for i, item := range l.Items {
			out[i] = item.String()
		}
		return out
	}
	return []string{v.String()}
}

// EncodeToString renders a value as canonical text; list items are joined
// with ", ".
func EncodeToString(f schema.Field, v Value) string {
	return strings.Join(EncodeToStrings(f, v), ", ")
}
