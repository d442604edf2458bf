package grammar

import (
	"fmt"

	"github.com/package-url/packageurl-go"
)

// Reserved purl types for PGXN dependencies. Other types pass through as
// generic purls.
const (
	PurlTypePGXN     = "pgxn"
	PurlTypePostgres = "postgres"
)

// A Purl is a parsed package URL together with the version range carried in
// its version segment, if any. For the pgxn type the namespace, when
// present, names the distribution's publisher.
type Purl struct {
	packageurl.PackageURL
	Range *VersionRange
}

// ParsePurl parses a package URL of the form pkg:type/namespace/name@range.
// The version segment is percent-decoded and then parsed as a version
// range.
func ParsePurl(s string) (*Purl, error) {
	p, err := packageurl.FromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid purl %q: %w", s, err)
	}
	purl := &Purl{PackageURL: p}
	if p.Version != "" {
		r, err := ParseVersionRange(p.Version)
		if err != nil {
			return nil, fmt.Errorf("invalid purl %q: %w", s, err)
		}
		purl.Range = r
	}
	return purl, nil
}
