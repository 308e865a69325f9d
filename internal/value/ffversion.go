package value

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"

	"github.com/starford/notelog/internal/schema"
)

// snapshotLevel is the patch level of a -SNAPSHOT build; it sorts below every
// numbered patch level, including the implicit 0 of a bare release.
const snapshotLevel = -1

// SnapshotSuffix marks an unreleased ffversion build.
const SnapshotSuffix = "SNAPSHOT"

var ffversionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-(\d+|SNAPSHOT))?$`)

// FFVersion is a marketing.major.minor[-patch|-SNAPSHOT] version.
type FFVersion struct {
	Marketing int
	Major     int
	Minor     int
	// Patch is the patch level; meaningful only when HasPatch is set.
	Patch    int
	HasPatch bool
	Snapshot bool
}

// ParseFFVersion parses the strict ffversion form.
func ParseFFVersion(s string) (FFVersion, error) {
	m := ffversionPattern.FindStringSubmatch(s)
	if m == nil {
		return FFVersion{}, fmt.Errorf("invalid ffversion %q", s)
	}
	var v FFVersion
	var err error
	if v.Marketing, err = strconv.Atoi(m[1]); err != nil {
		return FFVersion{}, fmt.Errorf("invalid ffversion %q: %w", s, err)
	}
	if v.Major, err = strconv.Atoi(m[2]); err != nil {
		return FFVersion{}, fmt.Errorf("invalid ffversion %q: %w", s, err)
	}
	if v.Minor, err = strconv.Atoi(m[3]); err != nil {
		return FFVersion{}, fmt.Errorf("invalid ffversion %q: %w", s, err)
	}
	switch m[4] {
	case "":
	case SnapshotSuffix:
		v.Snapshot = true
	default:
		if v.Patch, err = strconv.Atoi(m[4]); err != nil {
			return FFVersion{}, fmt.Errorf("invalid ffversion %q: %w", s, err)
		}
		v.HasPatch = true
	}
	return v, nil
}

func (FFVersion) Type() schema.Type { return schema.TypeFFVersion }
func (FFVersion) sealed()           {}

func (v FFVersion) String() string {
	base := fmt.Sprintf("%d.%d.%d", v.Marketing, v.Major, v.Minor)
	switch {
	case v.Snapshot:
		return base + "-" + SnapshotSuffix
	case v.HasPatch:
		return base + "-" + strconv.Itoa(v.Patch)
	default:
		return base
	}
}

// level is the fourth component of the comparison tuple.
func (v FFVersion) level() int {
	switch {
	case v.Snapshot:
		return snapshotLevel
	case v.HasPatch:
		return v.Patch
	default:
		return 0
	}
}

// Compare orders two ffversions by (marketing, major, minor, patch level).
func (v FFVersion) Compare(o FFVersion) int {
	if c := cmp.Compare(v.Marketing, o.Marketing); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.level(), o.level())
}
