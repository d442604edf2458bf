package meta

// The v1 typed model. PGXN Meta Spec v1 documents remain on PGXN in large
// numbers, so they get a faithful model of their own rather than being
// forced through the v2 types. Upgrade converts a v1 document to v2.

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/pgxn/meta-go/grammar"
)

// A StringList holds a v1 value that may be written as a single string or
// as an array of strings. It always encodes a single value back to the
// string form.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("expected a string or an array of strings")
	}
	*s = StringList(many)
	return nil
}

func (s StringList) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// A LegacyLicense holds a v1 license in any of its three written forms: a
// single name, an array of names, or an object mapping names to URLs.
// Exactly one of Names and URLs is populated.
type LegacyLicense struct {
	Names []string
	URLs  map[string]string
}

func (l *LegacyLicense) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = LegacyLicense{Names: []string{one}}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = LegacyLicense{Names: many}
		return nil
	}
	var urls map[string]string
	if err := json.Unmarshal(data, &urls); err != nil {
		return errors.New("expected a string, an array of strings, or an object mapping names to URLs")
	}
	*l = LegacyLicense{URLs: urls}
	return nil
}

func (l LegacyLicense) MarshalJSON() ([]byte, error) {
	if l.URLs != nil {
		return json.Marshal(l.URLs)
	}
	if len(l.Names) == 1 {
		return json.Marshal(l.Names[0])
	}
	return json.Marshal(l.Names)
}

// A LegacyExtension describes one extension under the v1 provides property.
type LegacyExtension struct {
	File     string          `json:"file"`
	Version  *semver.Version `json:"version"`
	Abstract string          `json:"abstract,omitempty"`
	Docfile  string          `json:"docfile,omitempty"`
}

// A LegacyPhase lists the v1 relations for one phase of the build cycle.
type LegacyPhase struct {
	Requires   map[string]VersionRange `json:"requires,omitempty"`
	Recommends map[string]VersionRange `json:"recommends,omitempty"`
	Suggests   map[string]VersionRange `json:"suggests,omitempty"`
	Conflicts  map[string]VersionRange `json:"conflicts,omitempty"`
}

// LegacyPrereqs holds the v1 prereqs property.
type LegacyPrereqs struct {
	Configure *LegacyPhase `json:"configure,omitempty"`
	Build     *LegacyPhase `json:"build,omitempty"`
	Test      *LegacyPhase `json:"test,omitempty"`
	Runtime   *LegacyPhase `json:"runtime,omitempty"`
	Develop   *LegacyPhase `json:"develop,omitempty"`
}

// A LegacyBugtracker holds the v1 resources bugtracker property.
type LegacyBugtracker struct {
	Web    string `json:"web,omitempty"`
	Mailto string `json:"mailto,omitempty"`
}

// A LegacyRepository holds the v1 resources repository property.
type LegacyRepository struct {
	URL  string `json:"url,omitempty"`
	Web  string `json:"web,omitempty"`
	Type string `json:"type,omitempty"`
}

// LegacyResources holds the v1 resources property.
type LegacyResources struct {
	Homepage   string            `json:"homepage,omitempty"`
	Bugtracker *LegacyBugtracker `json:"bugtracker,omitempty"`
	Repository *LegacyRepository `json:"repository,omitempty"`
}

// LegacyNoIndex lists the v1 files and directories to exclude from
// indexing.
type LegacyNoIndex struct {
	File      StringList `json:"file,omitempty"`
	Directory StringList `json:"directory,omitempty"`
}

// A LegacyDistribution represents a PGXN Meta Spec v1 document.
type LegacyDistribution struct {
	Name          string                     `json:"name"`
	Version       *semver.Version            `json:"version"`
	Abstract      string                     `json:"abstract"`
	Description   string                     `json:"description,omitempty"`
	Maintainer    StringList                 `json:"maintainer"`
	License       LegacyLicense              `json:"license"`
	Spec          Spec                       `json:"meta-spec"`
	Provides      map[string]LegacyExtension `json:"provides"`
	Tags          []string                   `json:"tags,omitempty"`
	Prereqs       *LegacyPrereqs             `json:"prereqs,omitempty"`
	Resources     *LegacyResources           `json:"resources,omitempty"`
	NoIndex       *LegacyNoIndex             `json:"no_index,omitempty"`
	GeneratedBy   string                     `json:"generated_by,omitempty"`
	ReleaseStatus string                     `json:"release_status,omitempty"`
	Custom        map[string]interface{}     `json:"-"`

	// The decoded document, retained for Upgrade. Conversion works on the
	// raw values so that custom properties nested anywhere survive.
	doc map[string]interface{}
}

func (l *LegacyDistribution) UnmarshalJSON(data []byte) error {
	type plain LegacyDistribution
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	if err := json.Unmarshal(data, &v.doc); err != nil {
		return err
	}
	*l = LegacyDistribution(v)
	return nil
}

func (l LegacyDistribution) MarshalJSON() ([]byte, error) {
	type plain LegacyDistribution
	return withCustomProps(plain(l), l.Custom)
}

// LegacyFromValue validates doc against the v1 schemas and decodes it.
func LegacyFromValue(doc map[string]interface{}) (*LegacyDistribution, error) {
	version, err := validator().Validate(doc)
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, semanticErrorf("/meta-spec", "expected a v1 document, got v%d", version)
	}
	return decodeLegacy(doc)
}

// ParseLegacy parses data as a v1 META.json document.
func ParseLegacy(data []byte) (*LegacyDistribution, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return LegacyFromValue(doc)
}

func decodeLegacy(doc map[string]interface{}) (*LegacyDistribution, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var l LegacyDistribution
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	if err := checkLegacy(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Upgrade converts the distribution to meta-spec v2.
func (l *LegacyDistribution) Upgrade() (*Distribution, error) {
	doc := l.doc
	if doc == nil {
		data, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	upgraded, err := UpgradeValue(doc)
	if err != nil {
		return nil, err
	}
	return decodeDistribution(upgraded)
}

func checkLegacy(l *LegacyDistribution) error {
	if !grammar.IsLegacyTerm(l.Name) {
		return semanticErrorf("/name", "not a valid distribution name")
	}
	if err := checkVersion("/version", l.Version); err != nil {
		return err
	}
	if err := checkSpec(&l.Spec, 1); err != nil {
		return err
	}
	for term, ext := range l.Provides {
		field := "/provides/" + term
		if !grammar.IsLegacyTerm(term) {
			return semanticErrorf(field, "%q is not a valid term", term)
		}
		if err := checkPath(field+"/file", ext.File); err != nil {
			return err
		}
		if err := checkVersion(field+"/version", ext.Version); err != nil {
			return err
		}
		if err := checkPath(field+"/docfile", ext.Docfile); err != nil {
			return err
		}
	}
	if l.Prereqs != nil {
		for name, phase := range map[string]*LegacyPhase{
			"configure": l.Prereqs.Configure,
			"build":     l.Prereqs.Build,
			"test":      l.Prereqs.Test,
			"runtime":   l.Prereqs.Runtime,
			"develop":   l.Prereqs.Develop,
		} {
			if phase == nil {
				continue
			}
			if err := checkLegacyPhase("/prereqs/"+name, phase); err != nil {
				return err
			}
		}
	}
	if l.NoIndex != nil {
		for i, p := range l.NoIndex.File {
			if err := checkPath(fmt.Sprintf("/no_index/file/%d", i), p); err != nil {
				return err
			}
		}
		for i, p := range l.NoIndex.Directory {
			if err := checkPath(fmt.Sprintf("/no_index/directory/%d", i), p); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkLegacyPhase(field string, p *LegacyPhase) error {
	for relation, deps := range map[string]map[string]VersionRange{
		"requires":   p.Requires,
		"recommends": p.Recommends,
		"suggests":   p.Suggests,
		"conflicts":  p.Conflicts,
	} {
		for term, rng := range deps {
			depField := field + "/" + relation + "/" + term
			if !grammar.IsLegacyTerm(term) {
				return semanticErrorf(depField, "%q is not a valid term", term)
			}
			if _, err := rng.Range(); err != nil {
				return semanticErrorf(depField, "%v", err)
			}
		}
	}
	return nil
}
