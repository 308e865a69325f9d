package value

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notelog/internal/schema"
)

func mustFF(t *testing.T, s string) FFVersion {
	t.Helper()
	v, err := ParseFFVersion(s)
	require.NoError(t, err)
	return v
}

func mustSemver(t *testing.T, s string) Semver {
	t.Helper()
	v, err := ParseSemver(s)
	require.NoError(t, err)
	return v
}

func TestCompareFFVersion(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2.0.0-SNAPSHOT", "2.0.0", -1},
		{"2.0.0-SNAPSHOT", "2.0.0-0", -1},
		{"2.0.0", "2.0.0-0", 0},
		{"2.0.0-1", "2.0.0", 1},
		{"2.0.0-1", "2.0.0-2", -1},
		{"2.0.1-SNAPSHOT", "2.0.0-9", 1},
		{"10.0.0", "9.99.99", 1},
		{"1.2.3", "1.2.3", 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			got := Compare(schema.TypeFFVersion, mustFF(t, tt.a), mustFF(t, tt.b))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareSemver(t *testing.T) {
	assert.Equal(t, -1, Compare(schema.TypeSemver, mustSemver(t, "2.0.0-1"), mustSemver(t, "2.0.0")))
	assert.Equal(t, 1, Compare(schema.TypeSemver, mustSemver(t, "2.0.0-1"), mustSemver(t, "1.1.1")))
	assert.Equal(t, -1, Compare(schema.TypeSemver, mustSemver(t, "1.0.0-alpha"), mustSemver(t, "1.0.0-beta")))
	assert.Equal(t, 0, Compare(schema.TypeSemver, mustSemver(t, "1.0.0"), mustSemver(t, "1.0.0")))
	assert.Equal(t, 1, Compare(schema.TypeSemver, mustSemver(t, "1.10.0"), mustSemver(t, "1.9.0")))
}

func TestCompareScalars(t *testing.T) {
	d1, _ := ParseDate("2020-12-31")
	d2, _ := ParseDate("2021-01-01")

	assert.Equal(t, -1, Compare(schema.TypeDate, d1, d2))
	assert.Equal(t, 1, Compare(schema.TypeNumber, Number(2), Number(1.5)))
	assert.Equal(t, -1, Compare(schema.TypeString, String("B"), String("a")))
	assert.Equal(t, -1, Compare(schema.TypeBoolean, Boolean(false), Boolean(true)))
	assert.Equal(t, 0, Compare(schema.TypeBoolean, Boolean(true), Boolean(true)))

	assert.True(t, Equal(schema.TypeString, String("x"), String("x")))
	assert.False(t, Equal(schema.TypeBoolean, Boolean(true), Boolean(false)))
	assert.True(t, Equal(schema.TypeFFVersion, mustFF(t, "1.0.0"), mustFF(t, "1.0.0-0")))
}

func TestCompareUnknownTypePanics(t *testing.T) {
	assert.Panics(t, func() { Compare(schema.Type(42), String("a"), String("b")) })
}

func TestCompareFieldPolicies(t *testing.T) {
	f := schema.Field{Name: "n", Type: schema.TypeNumber, List: true}
	list := func(ns ...float64) Value {
		items := make([]Value, len(ns))
		for i, n := range ns {
			items[i] = Number(n)
		}
		return List{Elem: schema.TypeNumber, Items: items}
	}

	in := []Value{list(3, 0), nil, list(1, 9), list(), list(2)}
	firsts := func(vs []Value) []any {
		out := make([]any, len(vs))
		for i, v := range vs {
			if k := sortKey(v); k != nil {
				out[i] = float64(k.(Number))
			}
		}
		return out
	}

	tests := map[string]struct {
		policy SortPolicy
		want   []any
	}{
		"ascending nulls last":   {SortPolicy{}, []any{1.0, 2.0, 3.0, nil, nil}},
		"ascending nulls first":  {SortPolicy{NullsFirst: true}, []any{nil, nil, 1.0, 2.0, 3.0}},
		"descending nulls last":  {SortPolicy{Descending: true}, []any{3.0, 2.0, 1.0, nil, nil}},
		"descending nulls first": {SortPolicy{Descending: true, NullsFirst: true}, []any{nil, nil, 3.0, 2.0, 1.0}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			vs := slices.Clone(in)
			slices.SortStableFunc(vs, func(a, b Value) int { return CompareField(f, a, b, tt.policy) })
			assert.Equal(t, tt.want, firsts(vs))
		})
	}
}
