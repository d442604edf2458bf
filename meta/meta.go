// Package meta loads, converts, and merges PGXN META.json documents into
// typed distribution metadata. It supports both the v1 and v2 PGXN Meta
// Specs: v2 documents decode directly into a Distribution, while v1
// documents are upgraded to the v2 layout first, either wholesale through
// FromValue and Parse or explicitly through a LegacyDistribution and its
// Upgrade method.
//
// Construction always runs three layers: JSON Schema validation through the
// valid package, decoding into the typed model, and the semantic checks in
// this package that re-validate every constrained string through its
// grammar. A document that survives all three is well formed PGXN metadata.
package meta

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"
)

// Module types.
const (
	ModuleTypeExtension = "extension"
	ModuleTypeHook      = "hook"
	ModuleTypeBgw       = "bgw"
)

// Preload stages for modules that require shared_preload_libraries or
// session_preload_libraries configuration.
const (
	PreloadServer  = "server"
	PreloadSession = "session"
)

// Spec identifies the version of the PGXN Meta Spec that a document
// conforms to.
type Spec struct {
	Version *semver.Version        `json:"version"`
	URL     string                 `json:"url,omitempty"`
	Custom  map[string]interface{} `json:"-"`
}

// Maintainer identifies one of the people maintaining a distribution.
// Every maintainer has a name and at least one of an email address or a
// URL to contact them.
type Maintainer struct {
	Name   string                 `json:"name"`
	Email  string                 `json:"email,omitempty"`
	URL    string                 `json:"url,omitempty"`
	Custom map[string]interface{} `json:"-"`
}

// Extension describes a loadable extension provided by a distribution,
// installed and managed by the CREATE EXTENSION command.
type Extension struct {
	Control  string                 `json:"control"`
	Abstract string                 `json:"abstract,omitempty"`
	TLE      *bool                  `json:"tle,omitempty"`
	SQL      string                 `json:"sql"`
	Doc      string                 `json:"doc,omitempty"`
	Custom   map[string]interface{} `json:"-"`
}

// Module describes a loadable module provided by a distribution, such as a
// background worker or a hook, loaded via LOAD or preloaded by the server.
type Module struct {
	Type     string                 `json:"type"`
	Abstract string                 `json:"abstract,omitempty"`
	Preload  string                 `json:"preload,omitempty"`
	Lib      string                 `json:"lib"`
	Doc      string                 `json:"doc,omitempty"`
	Custom   map[string]interface{} `json:"-"`
}

// App describes a program provided by a distribution, such as a command
// line client or a maintenance script.
type App struct {
	Lang     string                 `json:"lang,omitempty"`
	Abstract string                 `json:"abstract,omitempty"`
	Bin      string                 `json:"bin"`
	Doc      string                 `json:"doc,omitempty"`
	Lib      string                 `json:"lib,omitempty"`
	Man      string                 `json:"man,omitempty"`
	HTML     string                 `json:"html,omitempty"`
	Custom   map[string]interface{} `json:"-"`
}

// Contents lists the extensions, modules, and apps a distribution
// provides, keyed by term. At least one of the three collections is
// always present.
type Contents struct {
	Extensions map[string]Extension   `json:"extensions,omitempty"`
	Modules    map[string]Module      `json:"modules,omitempty"`
	Apps       map[string]App         `json:"apps,omitempty"`
	Custom     map[string]interface{} `json:"-"`
}

// Classifications categorizes a distribution with tags and curated
// category names.
type Classifications struct {
	Tags       []string               `json:"tags,omitempty"`
	Categories []string               `json:"categories,omitempty"`
	Custom     map[string]interface{} `json:"-"`
}

// Badge describes a status badge image to display for a distribution.
type Badge struct {
	Src    string                 `json:"src"`
	Alt    string                 `json:"alt"`
	URL    string                 `json:"url,omitempty"`
	Custom map[string]interface{} `json:"-"`
}

// Resources links to project sites and support channels for a
// distribution.
type Resources struct {
	Homepage   string                 `json:"homepage,omitempty"`
	Issues     string                 `json:"issues,omitempty"`
	Repository string                 `json:"repository,omitempty"`
	Docs       string                 `json:"docs,omitempty"`
	Support    string                 `json:"support,omitempty"`
	Badges     []Badge                `json:"badges,omitempty"`
	Custom     map[string]interface{} `json:"-"`
}

// Artifact links to a downloadable build of a release, such as a source
// archive or a binary compiled for a specific platform, along with at
// least one digest to verify it.
type Artifact struct {
	URL      string                 `json:"url"`
	Type     string                 `json:"type"`
	Platform string                 `json:"platform,omitempty"`
	SHA256   string                 `json:"sha256,omitempty"`
	SHA512   string                 `json:"sha512,omitempty"`
	Custom   map[string]interface{} `json:"-"`
}

// Distribution is the typed representation of a v2 PGXN META.json
// document. Values are constructed by FromValue, FromValues, Parse, and
// ParseFile, which validate and semantically check the source document,
// and by LegacyDistribution.Upgrade. Treat a constructed Distribution as
// read only.
//
// Properties beginning with x_ or X_ at any level are producer extensions.
// Each object carries its own in a Custom map, round tripped through
// serialization but never interpreted.
type Distribution struct {
	Name            string                 `json:"name"`
	Version         *semver.Version        `json:"version"`
	Abstract        string                 `json:"abstract"`
	Description     string                 `json:"description,omitempty"`
	Producer        string                 `json:"producer,omitempty"`
	License         string                 `json:"license"`
	Spec            Spec                   `json:"meta-spec"`
	Maintainers     []Maintainer           `json:"maintainers"`
	Classifications *Classifications       `json:"classifications,omitempty"`
	Contents        Contents               `json:"contents"`
	Ignore          []string               `json:"ignore,omitempty"`
	Dependencies    *Dependencies          `json:"dependencies,omitempty"`
	Resources       *Resources             `json:"resources,omitempty"`
	Artifacts       []Artifact             `json:"artifacts,omitempty"`
	Custom          map[string]interface{} `json:"-"`
}

// Ignored reports whether path matches one of the distribution's ignore
// patterns. Patterns follow gitignore-style glob syntax; a pattern naming
// a directory also covers everything beneath it. Leading slashes anchor a
// pattern to the distribution root and are ignored for matching.
func (d *Distribution) Ignored(path string) bool {
	path = strings.TrimPrefix(path, "/")
	for _, pattern := range d.Ignore {
		pattern = strings.TrimPrefix(pattern, "/")
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern+"/**", path); err == nil && ok {
			return true
		}
	}
	return false
}
