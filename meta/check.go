package meta

// The semantic layer. Schema validation catches structural problems, but
// several constrained string forms need real parsers: SPDX expressions,
// package URLs, version ranges, and relative paths among them. Every
// constructor runs the decoded document back through the grammar package
// so that a Distribution in hand is trustworthy all the way down.

import (
	"fmt"
	"net/mail"

	"github.com/Masterminds/semver/v3"

	"github.com/pgxn/meta-go/grammar"
)

// A SemanticError reports a value that satisfies the JSON schema but fails
// a deeper semantic rule. Field locates the offending value as a
// slash-separated path from the document root.
type SemanticError struct {
	Field  string
	Reason string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func semanticErrorf(field, format string, args ...interface{}) *SemanticError {
	return &SemanticError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func checkDistribution(d *Distribution) error {
	if !grammar.IsName(d.Name) {
		return semanticErrorf("/name", "not a valid distribution name")
	}
	if err := checkVersion("/version", d.Version); err != nil {
		return err
	}
	if err := grammar.CheckLicense(d.License); err != nil {
		return semanticErrorf("/license", "%v", err)
	}
	if err := checkSpec(&d.Spec, 2); err != nil {
		return err
	}
	if err := checkMaintainers(d.Maintainers); err != nil {
		return err
	}
	if err := checkContents(&d.Contents); err != nil {
		return err
	}
	for i, pattern := range d.Ignore {
		if err := grammar.CheckGlob(pattern); err != nil {
			return semanticErrorf(fmt.Sprintf("/ignore/%d", i), "%v", err)
		}
	}
	if d.Classifications != nil {
		for i, tag := range d.Classifications.Tags {
			if !grammar.IsTag(tag) {
				return semanticErrorf(fmt.Sprintf("/classifications/tags/%d", i), "not a valid tag")
			}
		}
	}
	if d.Dependencies != nil {
		if err := checkDependencies("/dependencies", d.Dependencies, true); err != nil {
			return err
		}
	}
	for i, a := range d.Artifacts {
		if err := checkArtifact(fmt.Sprintf("/artifacts/%d", i), &a); err != nil {
			return err
		}
	}
	return nil
}

// checkVersion requires a strict semantic version. The Original form is
// checked because the decoder accepts some lax inputs that the canonical
// form would mask.
func checkVersion(field string, v *semver.Version) error {
	if v == nil {
		return semanticErrorf(field, "missing version")
	}
	if !grammar.IsVersion(v.Original()) {
		return semanticErrorf(field, "%q is not a valid semantic version", v.Original())
	}
	return nil
}

// checkSpec requires the named meta-spec generation.
func checkSpec(s *Spec, major uint64) error {
	if err := checkVersion("/meta-spec/version", s.Version); err != nil {
		return err
	}
	if s.Version.Major() != major {
		return semanticErrorf("/meta-spec/version", "expected a v%d document, got %s", major, s.Version)
	}
	return nil
}

// checkMaintainers enforces the contact rule: the schema requires only a
// name, but every maintainer must also carry an email address or a URL.
func checkMaintainers(list []Maintainer) error {
	for i, m := range list {
		field := fmt.Sprintf("/maintainers/%d", i)
		if m.Email == "" && m.URL == "" {
			return semanticErrorf(field, "maintainer requires an email or url")
		}
		if m.Email != "" {
			if _, err := mail.ParseAddress(m.Email); err != nil {
				return semanticErrorf(field+"/email", "%q is not a valid email address", m.Email)
			}
		}
	}
	return nil
}

func checkContents(c *Contents) error {
	if len(c.Extensions) == 0 && len(c.Modules) == 0 && len(c.Apps) == 0 {
		return semanticErrorf("/contents", "no extensions, modules, or apps")
	}
	for term, ext := range c.Extensions {
		field := "/contents/extensions/" + term
		if !grammar.IsTerm(term) {
			return semanticErrorf(field, "%q is not a valid term", term)
		}
		for _, p := range []struct{ name, path string }{
			{"control", ext.Control}, {"sql", ext.SQL}, {"doc", ext.Doc},
		} {
			if err := checkPath(field+"/"+p.name, p.path); err != nil {
				return err
			}
		}
	}
	for term, mod := range c.Modules {
		field := "/contents/modules/" + term
		if !grammar.IsTerm(term) {
			return semanticErrorf(field, "%q is not a valid term", term)
		}
		for _, p := range []struct{ name, path string }{
			{"lib", mod.Lib}, {"doc", mod.Doc},
		} {
			if err := checkPath(field+"/"+p.name, p.path); err != nil {
				return err
			}
		}
	}
	for term, app := range c.Apps {
		field := "/contents/apps/" + term
		if !grammar.IsTerm(term) {
			return semanticErrorf(field, "%q is not a valid term", term)
		}
		for _, p := range []struct{ name, path string }{
			{"bin", app.Bin}, {"lib", app.Lib}, {"doc", app.Doc},
			{"man", app.Man}, {"html", app.HTML},
		} {
			if err := checkPath(field+"/"+p.name, p.path); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkPath validates a non-empty relative path. Absent optional paths
// decode as empty strings and pass; the schema guarantees required paths
// are present.
func checkPath(field, path string) error {
	if path == "" {
		return nil
	}
	if err := grammar.CheckPath(path); err != nil {
		return semanticErrorf(field, "%v", err)
	}
	return nil
}

func checkDependencies(field string, deps *Dependencies, allowVariations bool) error {
	for i, platform := range deps.Platforms {
		if !grammar.IsPlatform(platform) {
			return semanticErrorf(fmt.Sprintf("%s/platforms/%d", field, i), "%q is not a valid platform", platform)
		}
	}
	if deps.Postgres != nil {
		if _, err := deps.Postgres.Version.Range(); err != nil {
			return semanticErrorf(field+"/postgres/version", "%v", err)
		}
	}
	if deps.Packages != nil {
		for name, phase := range map[string]*Phase{
			"configure": deps.Packages.Configure,
			"build":     deps.Packages.Build,
			"test":      deps.Packages.Test,
			"run":       deps.Packages.Run,
			"develop":   deps.Packages.Develop,
		} {
			if phase == nil {
				continue
			}
			if err := checkPhase(field+"/packages/"+name, phase); err != nil {
				return err
			}
		}
	}
	for i, v := range deps.Variations {
		vfield := fmt.Sprintf("%s/variations/%d", field, i)
		if !allowVariations {
			return semanticErrorf(vfield, "variations cannot nest")
		}
		if v.Where == nil || v.Dependencies == nil {
			return semanticErrorf(vfield, "variation requires where and dependencies")
		}
		if err := checkDependencies(vfield+"/where", v.Where, false); err != nil {
			return err
		}
		if err := checkDependencies(vfield+"/dependencies", v.Dependencies, false); err != nil {
			return err
		}
	}
	return nil
}

func checkPhase(field string, p *Phase) error {
	for relation, deps := range map[string]map[string]VersionRange{
		"requires":   p.Requires,
		"recommends": p.Recommends,
		"suggests":   p.Suggests,
		"conflicts":  p.Conflicts,
	} {
		for purl, rng := range deps {
			depField := field + "/" + relation + "/" + purl
			if _, err := grammar.ParsePurl(purl); err != nil {
				return semanticErrorf(depField, "%v", err)
			}
			if _, err := rng.Range(); err != nil {
				return semanticErrorf(depField, "%v", err)
			}
		}
	}
	return nil
}

func checkArtifact(field string, a *Artifact) error {
	if a.SHA256 == "" && a.SHA512 == "" {
		return semanticErrorf(field, "artifact requires a sha256 or sha512 digest")
	}
	if a.SHA256 != "" {
		if err := grammar.CheckDigestHex("sha256", a.SHA256); err != nil {
			return semanticErrorf(field+"/sha256", "%v", err)
		}
	}
	if a.SHA512 != "" {
		if err := grammar.CheckDigestHex("sha512", a.SHA512); err != nil {
			return semanticErrorf(field+"/sha512", "%v", err)
		}
	}
	return nil
}
