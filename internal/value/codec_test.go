package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notelog/internal/schema"
)

func field(t schema.Type) schema.Field {
	return schema.Field{Name: "f", Type: t}
}

func listField(t schema.Type) schema.Field {
	return schema.Field{Name: "f", Type: t, List: true}
}

func TestDecode(t *testing.T) {
	tests := map[string]struct {
		field   schema.Field
		raw     any
		want    Value
		wantErr []string
	}{
		"string": {
			field: field(schema.TypeString),
			raw:   "hello",
			want:  String("hello"),
		},
		"string rejects number": {
			field:   field(schema.TypeString),
			raw:     3,
			wantErr: []string{"invalid value 3, expected string"},
		},
		"boolean": {
			field: field(schema.TypeBoolean),
			raw:   true,
			want:  Boolean(true),
		},
		"boolean rejects string": {
			field:   field(schema.TypeBoolean),
			raw:     "true",
			wantErr: []string{`invalid value "true", expected boolean`},
		},
		"number from int": {
			field: field(schema.TypeNumber),
			raw:   42,
			want:  Number(42),
		},
		"number from float": {
			field: field(schema.TypeNumber),
			raw:   1.5,
			want:  Number(1.5),
		},
		"number rejects NaN": {
			field:   field(schema.TypeNumber),
			raw:     math.NaN(),
			wantErr: []string{"invalid value NaN, expected number"},
		},
		"date": {
			field: field(schema.TypeDate),
			raw:   "2024-02-29",
			want:  Date{Year: 2024, Month: time.February, Day: 29},
		},
		"date not in calendar": {
			field:   field(schema.TypeDate),
			raw:     "2023-02-29",
			wantErr: []string{`invalid value "2023-02-29", expected date(YYYY-MM-DD)`},
		},
		"date malformed": {
			field:   field(schema.TypeDate),
			raw:     "X",
			wantErr: []string{`invalid value "X", expected date(YYYY-MM-DD)`},
		},
		"semver malformed": {
			field:   field(schema.TypeSemver),
			raw:     "1.2",
			wantErr: []string{`invalid value "1.2", expected semver(major.minor.patch[-prerelease])`},
		},
		"semver build metadata": {
			field:   field(schema.TypeSemver),
			raw:     "1.2.3+build.7",
			wantErr: []string{`invalid value "1.2.3+build.7", expected semver(major.minor.patch[-prerelease])`},
		},
		"ffversion snapshot": {
			field: field(schema.TypeFFVersion),
			raw:   "2.0.0-SNAPSHOT",
			want:  FFVersion{Marketing: 2, Snapshot: true},
		},
		"ffversion malformed": {
			field:   field(schema.TypeFFVersion),
			raw:     "2.0.0-beta",
			wantErr: []string{`invalid value "2.0.0-beta", expected ffversion(marketing.major.minor[-patch])`},
		},
		"enum": {
			field: schema.Field{Name: "f", Type: schema.TypeString, Enum: []string{"a", "b"}},
			raw:   "b",
			want:  String("b"),
		},
		"enum rejects": {
			field:   schema.Field{Name: "f", Type: schema.TypeString, Enum: []string{"a", "b"}},
			raw:     "c",
			wantErr: []string{`invalid value "c", expected "a" | "b"`},
		},
		"list": {
			field: listField(schema.TypeNumber),
			raw:   []any{1, 2.5},
			want:  List{Elem: schema.TypeNumber, Items: []Value{Number(1), Number(2.5)}},
		},
		"list collects every bad element": {
			field: listField(schema.TypeDate),
			raw:   []any{"X", "2024-01-01", "Y"},
			wantErr: []string{
				`invalid value "X", expected date(YYYY-MM-DD)`,
				`invalid value "Y", expected date(YYYY-MM-DD)`,
			},
		},
		"list requires array": {
			field:   listField(schema.TypeBoolean),
			raw:     true,
			wantErr: []string{"invalid value true, expected list of boolean"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Decode(tt.field, tt.raw)
			if tt.wantErr != nil {
				require.Error(t, err)
				var errs Errors
				require.ErrorAs(t, err, &errs)
				assert.Equal(t, tt.wantErr, []string(errs))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeSemver(t *testing.T) {
	v, err := Decode(field(schema.TypeSemver), "1.2.3-beta.1")
	require.NoError(t, err)
	s := v.(Semver)
	assert.Equal(t, uint64(1), s.Major())
	assert.Equal(t, uint64(2), s.Minor())
	assert.Equal(t, uint64(3), s.Patch())
	assert.Equal(t, "beta.1", s.Prerelease())
	assert.False(t, s.Release())
}

func TestDecodeFromString(t *testing.T) {
	tests := []struct {
		name    string
		field   schema.Field
		in      string
		want    Value
		wantErr bool
	}{
		{"true", field(schema.TypeBoolean), "true", Boolean(true), false},
		{"false", field(schema.TypeBoolean), "false", Boolean(false), false},
		{"True is not coerced", field(schema.TypeBoolean), "True", nil, true},
		{"yes is not coerced", field(schema.TypeBoolean), "yes", nil, true},
		{"number", field(schema.TypeNumber), "-1.5e3", Number(-1500), false},
		{"number NaN", field(schema.TypeNumber), "NaN", nil, true},
		{"number Inf", field(schema.TypeNumber), "Inf", nil, true},
		{"number hex", field(schema.TypeNumber), "0x10", nil, true},
		{"number overflow", field(schema.TypeNumber), "1e400", nil, true},
		{"date", field(schema.TypeDate), "2020-01-31", Date{2020, time.January, 31}, false},
		{"date out of range", field(schema.TypeDate), "2020-02-31", nil, true},
		{"ffversion", field(schema.TypeFFVersion), "1.2.3-4", FFVersion{1, 2, 3, 4, true, false}, false},
		{"list field element", listField(schema.TypeString), "x", String("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFromString(tt.field, tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid value")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeFromStrings(t *testing.T) {
	got, err := DecodeFromStrings(listField(schema.TypeBoolean), []string{"true", "false"})
	require.NoError(t, err)
	assert.Equal(t, List{Elem: schema.TypeBoolean, Items: []Value{Boolean(true), Boolean(false)}}, got)

	_, err = DecodeFromStrings(listField(schema.TypeBoolean), []string{"yes", "true", "no"})
	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, Errors{
		`invalid value "yes", expected boolean`,
		`invalid value "no", expected boolean`,
	}, errs)

	_, err = DecodeFromStrings(field(schema.TypeNumber), []string{"1", "2"})
	assert.ErrorContains(t, err, "expected a single value")

	got, err = DecodeFromStrings(field(schema.TypeNumber), []string{"7"})
	require.NoError(t, err)
	assert.Equal(t, Number(7), got)
}

func TestEnumClosure(t *testing.T) {
	f := schema.Field{Name: "f", Type: schema.TypeString, Enum: []string{"a", "b"}}
	for _, ok := range []string{"a", "b"} {
		_, err := Decode(f, ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"A", "a ", " b", "ab", "", "c"} {
		_, err := Decode(f, bad)
		assert.Error(t, err, bad)
		_, err = DecodeFromString(f, bad)
		assert.Error(t, err, bad)
	}
}

func TestEncode(t *testing.T) {
	sv, err := ParseSemver("1.0.0-rc.1")
	require.NoError(t, err)

	tests := map[string]struct {
		field schema.Field
		v     Value
		raw   any
		text  string
	}{
		"string":    {field(schema.TypeString), String("x y"), "x y", "x y"},
		"boolean":   {field(schema.TypeBoolean), Boolean(false), false, "false"},
		"integer":   {field(schema.TypeNumber), Number(3), 3.0, "3"},
		"fraction":  {field(schema.TypeNumber), Number(0.25), 0.25, "0.25"},
		"huge":      {field(schema.TypeNumber), Number(1e21), 1e21, "1e+21"},
		"date":      {field(schema.TypeDate), Date{2021, time.March, 4}, "2021-03-04", "2021-03-04"},
		"semver":    {field(schema.TypeSemver), sv, "1.0.0-rc.1", "1.0.0-rc.1"},
		"ffversion": {field(schema.TypeFFVersion), FFVersion{Marketing: 3, Minor: 1, Patch: 2, HasPatch: true}, "3.0.1-2", "3.0.1-2"},
		"list": {
			listField(schema.TypeString),
			List{Elem: schema.TypeString, Items: []Value{String("b"), String("a")}},
			[]any{"b", "a"},
			"b, a",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.raw, Encode(tt.field, tt.v))
			assert.Equal(t, tt.text, EncodeToString(tt.field, tt.v))
		})
	}
}

func TestEncodeToStrings(t *testing.T) {
	l := List{Elem: schema.TypeNumber, Items: []Value{Number(1), Number(2.5)}}
	assert.Equal(t, []string{"1", "2.5"}, EncodeToStrings(listField(schema.TypeNumber), l))
	assert.Equal(t, []string{"true"}, EncodeToStrings(field(schema.TypeBoolean), Boolean(true)))
}
