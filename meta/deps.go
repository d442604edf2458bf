package meta

import (
	"encoding/json"
	"errors"

	"github.com/pgxn/meta-go/grammar"
)

// Build pipelines recognized by PGXN. A distribution may name others; the
// schema constrains the set, not this package.
const (
	PipelinePgxs     = "pgxs"
	PipelineMeson    = "meson"
	PipelinePgrx     = "pgrx"
	PipelineAutoconf = "autoconf"
	PipelineCmake    = "cmake"
)

// A VersionRange is a dependency version constraint as written in a
// document: either the integer zero, which accepts any version, or a
// string of comma-separated constraints such as ">= 1.2, < 2.0".
type VersionRange struct {
	spec string
	zero bool
}

// UnmarshalJSON accepts either the number 0 or a constraint string.
func (r *VersionRange) UnmarshalJSON(data []byte) error {
	if string(data) == "0" {
		*r = VersionRange{spec: "0", zero: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("version range must be a string or the number 0")
	}
	*r = VersionRange{spec: s}
	return nil
}

// MarshalJSON restores the range as written, preserving the numeric form
// of the zero range.
func (r VersionRange) MarshalJSON() ([]byte, error) {
	if r.zero {
		return []byte("0"), nil
	}
	return json.Marshal(r.spec)
}

// String returns the range as written in the document.
func (r VersionRange) String() string { return r.spec }

// IsZero reports whether the range was written as the integer zero.
func (r VersionRange) IsZero() bool { return r.zero }

// Range parses the constraint expression for version matching.
func (r VersionRange) Range() (*grammar.VersionRange, error) {
	return grammar.ParseVersionRange(r.spec)
}

// Postgres expresses a dependency on PostgreSQL itself: a version range
// and, optionally, the features it must have been compiled with.
type Postgres struct {
	Version VersionRange           `json:"version"`
	With    []string               `json:"with,omitempty"`
	Custom  map[string]interface{} `json:"-"`
}

// Phase maps package URLs to version ranges for one dependency relation.
// Keys are purls such as "pkg:pgxn/pgtap" or "pkg:postgres/plpgsql".
type Phase struct {
	Requires   map[string]VersionRange `json:"requires,omitempty"`
	Recommends map[string]VersionRange `json:"recommends,omitempty"`
	Suggests   map[string]VersionRange `json:"suggests,omitempty"`
	Conflicts  map[string]VersionRange `json:"conflicts,omitempty"`
	Custom     map[string]interface{}  `json:"-"`
}

// Packages groups package dependencies by the distribution lifecycle
// phase in which they apply.
type Packages struct {
	Configure *Phase                 `json:"configure,omitempty"`
	Build     *Phase                 `json:"build,omitempty"`
	Test      *Phase                 `json:"test,omitempty"`
	Run       *Phase                 `json:"run,omitempty"`
	Develop   *Phase                 `json:"develop,omitempty"`
	Custom    map[string]interface{} `json:"-"`
}

// Variation overrides dependencies under the conditions expressed by
// Where. Neither Where nor Dependencies may itself contain variations.
type Variation struct {
	Where        *Dependencies          `json:"where"`
	Dependencies *Dependencies          `json:"dependencies"`
	Custom       map[string]interface{} `json:"-"`
}

// Dependencies describes everything a distribution requires of its
// environment: supported platforms, the Postgres version, the build
// pipeline, package dependencies per phase, and conditional variations.
type Dependencies struct {
	Platforms  []string               `json:"platforms,omitempty"`
	Postgres   *Postgres              `json:"postgres,omitempty"`
	Pipeline   string                 `json:"pipeline,omitempty"`
	Packages   *Packages              `json:"packages,omitempty"`
	Variations []Variation            `json:"variations,omitempty"`
	Custom     map[string]interface{} `json:"-"`
}
