// Package version parses the solver's gRPC server version and gates
// features on a minimum version.
package version

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrInvalidVersion = errors.New("version: invalid version string")

// Version is a server version tuple such as 0.4.1.
type Version struct {
	Major int
	Minor int
	Patch int
}

var (
	V0_3_0 = Version{0, 3, 0}
	V0_4_0 = Version{0, 4, 0}
	V0_5_0 = Version{0, 5, 0}
)

// releases maps server versions to the first solver release shipping them.
var releases = map[Version]string{
	{0, 0, 0}: "2020R2",
	{0, 3, 0}: "2021R1",
	{0, 4, 0}: "2021R2",
	{0, 4, 1}: "2021R2",
	{0, 5, 0}: "2022R1",
	{0, 5, 1}: "2022R2",
}

// Parse reads "major.minor.patch". Missing parts default to zero.
func Parse(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Version{}, fmt.Errorf("%w: empty", ErrInvalidVersion)
	}
	parts := strings.Split(raw, ".")
	if len(parts) > 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, raw)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, raw)
		}
		nums[i] = n
	}
	return Version{nums[0], nums[1], nums[2]}, nil
}

func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpInt(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpInt(v.Minor, o.Minor)
	default:
		return cmpInt(v.Patch, o.Patch)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Meets reports whether have >= want.
func Meets(have, want Version) bool {
	return have.Compare(want) >= 0
}

// Release names the solver release for v. Unknown versions resolve to the
// newest known release not newer than v.
func Release(v Version) string {
	if r, ok := releases[v]; ok {
		return r
	}
	known := make([]Version, 0, len(releases))
	for k := range releases {
		known = append(known, k)
	}
	sort.Slice(known, func(i, j int) bool { return known[i].Compare(known[j]) < 0 })
	name := ""
	for _, k := range known {
		if Meets(v, k) {
			name = releases[k]
		}
	}
	if name == "" {
		return "unknown"
	}
	return name
}

// VersionError reports a feature gated behind a newer server.
type VersionError struct {
	Feature string
	Have    Version
	Want    Version
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("version: %s requires server %s (%s) or later, have %s",
		e.Feature, e.Want, Release(e.Want), e.Have)
}

// Require returns a *VersionError when have is older than want.
func Require(feature string, have, want Version) error {
	if Meets(have, want) {
		return nil
	}
	return &VersionError{Feature: feature, Have: have, Want: want}
}
