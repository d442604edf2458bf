package grammar

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseVersion parses s as a strict semantic version: a major.minor.patch
// triple with optional pre-release and build metadata and no leading "v".
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return v, nil
}

// IsVersion reports whether s is a strict semantic version.
func IsVersion(s string) bool {
	_, err := semver.StrictNewVersion(s)
	return err == nil
}

// A Constraint pairs a comparison operator with a version. The supported
// operators are ==, !=, >, >=, <, and <=.
type Constraint struct {
	Op      string
	Version *semver.Version
}

// Match reports whether v satisfies the constraint. Build metadata never
// participates in comparison.
func (c Constraint) Match(v *semver.Version) bool {
	cmp := v.Compare(c.Version)
	switch c.Op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	}
	return false
}

// A VersionRange is an ordered list of constraints conjoined with AND. The
// zero range, spelled "0" in metadata, has no constraints and accepts any
// version.
type VersionRange struct {
	raw  string
	cons []Constraint
}

var (
	zeroRange = regexp.MustCompile(`^(?:==|!=|>=|<=|>|<)?\s*0$`)
	rangeOps  = []string{"==", "!=", ">=", "<=", ">", "<"}
)

// ParseVersionRange parses a version range: either "0", accepting any
// version, or a comma-delimited list of versions, each optionally preceded
// by an operator. A bare or truncated version such as "2.4" is shorthand
// for ">= 2.4.0".
func ParseVersionRange(s string) (*VersionRange, error) {
	trimmed := strings.TrimSpace(s)
	if zeroRange.MatchString(trimmed) {
		return &VersionRange{raw: trimmed}, nil
	}
	if trimmed == "" {
		return nil, fmt.Errorf("invalid version range %q: empty", s)
	}
	r := &VersionRange{raw: trimmed}
	for _, part := range strings.Split(trimmed, ",") {
		c, err := parseConstraint(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid version range %q: %w", s, err)
		}
		r.cons = append(r.cons, c)
	}
	return r, nil
}

func parseConstraint(s string) (Constraint, error) {
	op := ">="
	for _, candidate := range rangeOps {
		if strings.HasPrefix(s, candidate) {
			op = candidate
			s = strings.TrimSpace(strings.TrimPrefix(s, candidate))
			break
		}
	}
	v, err := semver.StrictNewVersion(padVersion(s))
	if err != nil {
		return Constraint{}, err
	}
	return Constraint{Op: op, Version: v}, nil
}

// padVersion extends a truncated version such as "9.6" or "14" to a full
// semver triple, leaving any pre-release or build metadata in place.
func padVersion(s string) string {
	core, rest := s, ""
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		core, rest = s[:i], s[i:]
	}
	switch strings.Count(core, ".") {
	case 0:
		core += ".0.0"
	case 1:
		core += ".0"
	}
	return core + rest
}

// String returns the range as written, with surrounding space trimmed.
func (r *VersionRange) String() string {
	return r.raw
}

// IsAny reports whether the range accepts any version.
func (r *VersionRange) IsAny() bool {
	return len(r.cons) == 0
}

// Constraints returns the parsed constraints in the order written.
func (r *VersionRange) Constraints() []Constraint {
	return r.cons
}

// Satisfied reports whether v meets every constraint in the range.
func (r *VersionRange) Satisfied(v *semver.Version) bool {
	for _, c := range r.cons {
		if !c.Match(v) {
			return false
		}
	}
	return true
}
