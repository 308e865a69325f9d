// Package value implements the typed field values of a note header: decoding
// raw YAML or string input into typed values, encoding them back, and ordering
// them for queries and sorting.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/starford/notelog/internal/schema"
)

// Value is a decoded field value. The set of implementations is closed.
type Value interface {
	// Type returns the field type of the value (the element type for lists).
	Type() schema.Type
	// String returns the canonical text form.
	String() string
	sealed()
}

// String is a value of a string field.
type String string

func (String) Type() schema.Type { return schema.TypeString }
func (s String) String() string  { return string(s) }
func (String) sealed()           {}

// Boolean is a value of a boolean field.
type Boolean bool

func (Boolean) Type() schema.Type { return schema.TypeBoolean }
func (b Boolean) String() string  { return strconv.FormatBool(bool(b)) }
func (Boolean) sealed()           {}

// Number is a value of a number field. It is never NaN or infinite.
type Number float64

func (Number) Type() schema.Type { return schema.TypeNumber }
func (Number) sealed()           {}

// String formats the number the shortest way that round-trips, switching to
// exponent notation only for very large or very small magnitudes.
func (n Number) String() string {
	f := float64(n)
	abs := math.Abs(f)
	if f == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Date is a calendar date without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses a strict YYYY-MM-DD date and rejects dates that do not
// exist in the calendar.
func ParseDate(s string) (Date, error) {
	if !datePattern.MatchString(s) {
		return Date{}, fmt.Errorf("date %q is not in YYYY-MM-DD form", s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("date %q is not a calendar date", s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (Date) Type() schema.Type { return schema.TypeDate }
func (Date) sealed()           {}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Semver is a semantic version.
type Semver struct {
	*semver.Version
}

// ParseSemver parses a strict major.minor.patch[-prerelease] version.
func ParseSemver(s string) (Semver, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return Semver{}, err
	}
	if v.Metadata() != "" {
		return Semver{}, fmt.Errorf("semantic version %q carries build metadata", s)
	}
	return Semver{v}, nil
}

// ParseSemverLoose parses a version where minor and patch may be omitted
// (they default to 0), as accepted in query literals.
func ParseSemverLoose(s string) (Semver, error) {
	if !looseSemverPattern.MatchString(s) {
		return Semver{}, fmt.Errorf("invalid semantic version %q", s)
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return Semver{}, err
	}
	return Semver{v}, nil
}

func (Semver) Type() schema.Type { return schema.TypeSemver }
func (Semver) sealed()           {}

// Release reports whether the version has no prerelease part.
func (s Semver) Release() bool {
	return s.Prerelease() == ""
}

// SameCore reports whether both versions share major.minor.patch.
func (s Semver) SameCore(o Semver) bool {
	return s.Major() == o.Major() && s.Minor() == o.Minor() && s.Patch() == o.Patch()
}

// List is the value of a list field.
type List struct {
	Elem  schema.Type
	Items []Value
}

func (l List) Type() schema.Type { return l.Elem }
func (List) sealed()             {}

func (l List) String() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}

// Len returns the number of items.
func (l List) Len() int { return len(l.Items) }

// Values maps field names to decoded values. A missing key or a nil entry
// means the field is absent.
type Values map[string]Value

// Get returns the value of a field, or nil when absent.
func (v Values) Get(name string) Value {
	if v == nil {
		return nil
	}
	return v[name]
}

// Present reports whether a field has a value.
func (v Values) Present(name string) bool {
	return v.Get(name) != nil
}

// Clone returns a shallow copy. Values themselves are immutable.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
