package value

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/starford/notelog/internal/schema"
)

// Compare orders two non-list values of type t, returning -1, 0 or 1.
// It panics when the values do not match t.
func Compare(t schema.Type, a, b Value) int {
	switch t {
	case schema.TypeString:
		return strings.Compare(string(a.(String)), string(b.(String)))
	case schema.TypeBoolean:
		x, y := bool(a.(Boolean)), bool(b.(Boolean))
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case schema.TypeNumber:
		return cmp.Compare(float64(a.(Number)), float64(b.(Number)))
	case schema.TypeDate:
		x, y := a.(Date), b.(Date)
		if c := cmp.Compare(x.Year, y.Year); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Month, y.Month); c != 0 {
			return c
		}
		return cmp.Compare(x.Day, y.Day)
	case schema.TypeSemver:
		return a.(Semver).Compare(b.(Semver).Version)
	case schema.TypeFFVersion:
		return a.(FFVersion).Compare(b.(FFVersion))
	}
	panic(fmt.Sprintf("value: unknown field type %d", int(t)))
}

// Equal reports whether two non-list values of type t are equal.
func Equal(t schema.Type, a, b Value) bool {
	switch t {
	case schema.TypeString:
		return a.(String) == b.(String)
	case schema.TypeBoolean:
		return a.(Boolean) == b.(Boolean)
	default:
		return Compare(t, a, b) == 0
	}
}

// SortPolicy controls ordering of a field across notes.
type SortPolicy struct {
	Descending bool
	// NullsFirst places absent values (and empty lists) before all others,
	// regardless of direction. Otherwise they go last.
	NullsFirst bool
}

// sortKey returns the value a field sorts by: the first item of a list, or
// nil when there is none.
func sortKey(v Value) Value {
	if l, ok := v.(List); ok {
		if len(l.Items) == 0 {
			return nil
		}
		return l.Items[0]
	}
	return v
}

// CompareField orders two values of field f under policy p. Lists sort by
// their first element.
func CompareField(f schema.Field, a, b Value, p SortPolicy) int {
	ka, kb := sortKey(a), sortKey(b)
	switch {
	case ka == nil && kb == nil:
		return 0
	case ka == nil:
		if p.NullsFirst {
			return -1
		}
		return 1
	case kb == nil:
		if p.NullsFirst {
			return 1
		}
		return -1
	}
	c := Compare(f.Type, ka, kb)
	if p.Descending {
		return -c
	}
	return c
}
