package meta

// Conversion from PGXN Meta Spec v1 to v2. The conversion works on raw
// decoded values rather than the typed models so that custom properties at
// every level ride along untouched.

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SpecURL identifies the v2 spec in converted meta-spec properties.
const SpecURL = "https://rfcs.pgxn.org/0003-meta-spec-v2.html"

// fallbackURL stands in for maintainers with no parseable email address and
// no homepage to point to.
const fallbackURL = "https://pgxn.org"

// A ConversionError reports a v1 value that cannot be represented in a v2
// document.
type ConversionError struct {
	Reason string
}

func (e *ConversionError) Error() string { return e.Reason }

func conversionErrorf(format string, args ...interface{}) *ConversionError {
	return &ConversionError{Reason: fmt.Sprintf(format, args...)}
}

// jsonString renders v as compact JSON for use in error messages.
func jsonString(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// copyCustomProps copies the custom properties of src, those with an "x_"
// or "X_" prefix, into dst.
func copyCustomProps(src, dst map[string]interface{}) {
	for k, v := range src {
		if strings.HasPrefix(k, "x_") || strings.HasPrefix(k, "X_") {
			dst[k] = v
		}
	}
}

// UpgradeValue converts the decoded v1 document v1 to a v2 document. The
// input is not validated; pass documents vetted by a Validator or build the
// result into a Distribution to fully check it.
func UpgradeValue(v1 map[string]interface{}) (map[string]interface{}, error) {
	v2 := make(map[string]interface{})
	upgradeCommon(v1, v2)

	maintainers, err := upgradeMaintainers(v1)
	if err != nil {
		return nil, err
	}
	v2["maintainers"] = maintainers

	license, err := upgradeLicense(v1)
	if err != nil {
		return nil, err
	}
	v2["license"] = license

	contents, err := upgradeContents(v1)
	if err != nil {
		return nil, err
	}
	v2["contents"] = contents

	if c := upgradeClassifications(v1); c != nil {
		v2["classifications"] = c
	}
	if ignore := upgradeIgnore(v1); len(ignore) > 0 {
		v2["ignore"] = ignore
	}
	if deps := upgradeDependencies(v1); deps != nil {
		v2["dependencies"] = deps
	}
	if res := upgradeResources(v1); res != nil {
		v2["resources"] = res
	}
	return v2, nil
}

// v1SpecURL matches the URL of the v1 spec as written in v1 documents.
var v1SpecURL = regexp.MustCompile(`^https?://pgxn\.org/meta/spec\.(?:txt|html)$`)

// upgradeCommon copies the fields shared between v1 and v2, renaming
// generated_by to producer, and sets the v2 meta-spec. The meta-spec.url
// becomes the v2 canonical URL when the v1 value pointed at the v1 spec;
// any other value is dropped.
func upgradeCommon(v1, v2 map[string]interface{}) {
	for _, names := range [][2]string{
		{"name", "name"},
		{"abstract", "abstract"},
		{"description", "description"},
		{"version", "version"},
		{"generated_by", "producer"},
	} {
		if v, ok := v1[names[0]]; ok {
			v2[names[1]] = v
		}
	}
	spec := map[string]interface{}{"version": "2.0.0"}
	if ms, ok := v1["meta-spec"].(map[string]interface{}); ok {
		if url, ok := ms["url"].(string); ok && v1SpecURL.MatchString(url) {
			spec["url"] = SpecURL
		}
		copyCustomProps(ms, spec)
	}
	v2["meta-spec"] = spec
	copyCustomProps(v1, v2)
}

// upgradeMaintainers converts the v1 maintainer strings to v2 maintainer
// objects. A string that parses as an email address becomes a name and
// email pair; anything else keeps the whole string as the name and points
// the url at the distribution homepage, if any, or else at PGXN.
func upgradeMaintainers(v1 map[string]interface{}) ([]interface{}, error) {
	raw, ok := v1["maintainer"]
	if !ok {
		return nil, conversionErrorf("maintainer property missing")
	}
	var list []interface{}
	switch m := raw.(type) {
	case string:
		list = []interface{}{m}
	case []interface{}:
		list = m
	default:
		return nil, conversionErrorf("invalid v1 maintainer: %s", jsonString(raw))
	}
	maintainers := make([]interface{}, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, conversionErrorf("invalid v1 maintainer: %s", jsonString(item))
		}
		maintainers = append(maintainers, upgradeMaintainer(s, v1))
	}
	return maintainers, nil
}

func upgradeMaintainer(m string, v1 map[string]interface{}) map[string]interface{} {
	if addr, err := mail.ParseAddress(m); err == nil {
		name := addr.Name
		if name == "" {
			name = m
		}
		return map[string]interface{}{"name": name, "email": addr.Address}
	}
	return map[string]interface{}{"name": m, "url": homepageOr(v1, fallbackURL)}
}

func homepageOr(v1 map[string]interface{}, fallback string) string {
	if res, ok := v1["resources"].(map[string]interface{}); ok {
		if hp, ok := res["homepage"].(string); ok {
			return hp
		}
	}
	return fallback
}

// v1Licenses maps v1 license names to SPDX expressions. The v1 names with
// no SPDX equivalent, such as "restricted" and "open_source", are omitted
// and fail the conversion.
var v1Licenses = map[string]string{
	"agpl_3":      "AGPL-3.0",
	"apache_1_1":  "Apache-1.1",
	"apache_2_0":  "Apache-2.0",
	"artistic_1":  "Artistic-1.0",
	"artistic_2":  "Artistic-2.0",
	"bsd":         "BSD-3-Clause",
	"freebsd":     "BSD-2-Clause-FreeBSD",
	"gfdl_1_2":    "GFDL-1.2-or-later",
	"gfdl_1_3":    "GFDL-1.3-or-later",
	"gpl_1":       "GPL-1.0-only",
	"gpl_2":       "GPL-2.0-only",
	"gpl_3":       "GPL-3.0-only",
	"lgpl_2_1":    "LGPL-2.1",
	"lgpl_3_0":    "LGPL-3.0",
	"mit":         "MIT",
	"mozilla_1_0": "MPL-1.0",
	"mozilla_1_1": "MPL-1.1",
	"openssl":     "OpenSSL",
	"perl_5":      "Artistic-1.0-Perl OR GPL-1.0-or-later",
	"postgresql":  "PostgreSQL",
	"qpl_1_0":     "QPL-1.0",
	"sun":         "SISSL",
	"zlib":        "Zlib",
}

func licenseFor(name string) (string, error) {
	if expr, ok := v1Licenses[name]; ok {
		return expr, nil
	}
	return "", conversionErrorf("unknown v1 license: %s", name)
}

// licenseForKey maps the license names observed as object keys on PGXN,
// which never matched the list in the v1 spec, to SPDX expressions.
func licenseForKey(key string, value interface{}) (string, error) {
	switch key {
	case "PostgreSQL":
		return "PostgreSQL", nil
	case "Apache":
		return "Apache-2.0", nil
	case "ISC":
		return "ISC", nil
	case "mit":
		return "MIT", nil
	case "mozilla_2_0":
		return "MPL-2.0", nil
	case "gpl_3":
		return "GPL-3.0-only", nil
	case "BSD":
		return "BSD-2-Clause", nil
	case "BSD 2 Clause":
		return "BSD-2-Clause", nil
	case "restricted":
		// The one known use is pg_diffix, released under the BUSL.
		if s, ok := value.(string); ok && s == "https://github.com/diffix/pg_diffix/blob/master/LICENSE.md" {
			return "BUSL-1.1", nil
		}
	}
	return "", conversionErrorf("unknown v1 license: %s: %s", key, jsonString(value))
}

// upgradeLicense converts the v1 license property, in any of its three
// forms, to a v2 SPDX expression. Multiple licenses join with OR, since the
// v1 spec held that the distribution may be licensed under any listed
// license.
func upgradeLicense(v1 map[string]interface{}) (string, error) {
	raw, ok := v1["license"]
	if !ok {
		return "", conversionErrorf("license property missing")
	}
	switch lic := raw.(type) {
	case string:
		return licenseFor(lic)
	case []interface{}:
		exprs := make([]string, 0, len(lic))
		for _, item := range lic {
			s, ok := item.(string)
			if !ok {
				return "", conversionErrorf("invalid v1 license: %s", jsonString(item))
			}
			expr, err := licenseFor(s)
			if err != nil {
				return "", err
			}
			exprs = append(exprs, expr)
		}
		return strings.Join(exprs, " OR "), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(lic))
		for k := range lic {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		exprs := make([]string, 0, len(keys))
		for _, k := range keys {
			expr, err := licenseForKey(k, lic[k])
			if err != nil {
				return "", err
			}
			exprs = append(exprs, expr)
		}
		return strings.Join(exprs, " OR "), nil
	default:
		return "", conversionErrorf("invalid v1 license: %s", jsonString(raw))
	}
}

// upgradeContents converts the v1 provides property to the v2 contents
// property. Every v1 distribution provides extensions, so each entry
// becomes an extension with a control file named for the extension and the
// v1 file as its SQL file.
func upgradeContents(v1 map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := v1["provides"]
	if !ok {
		return nil, conversionErrorf("provides property missing")
	}
	provides, ok := raw.(map[string]interface{})
	if !ok {
		return nil, conversionErrorf("invalid v1 provides value: %s", jsonString(raw))
	}
	extensions := make(map[string]interface{}, len(provides))
	for name, rawSpec := range provides {
		spec, ok := rawSpec.(map[string]interface{})
		if !ok {
			return nil, conversionErrorf("invalid v1 %q extension value: %s", name, jsonString(rawSpec))
		}
		ext := map[string]interface{}{"control": name + ".control"}
		if file, ok := spec["file"]; ok {
			ext["sql"] = file
		} else {
			ext["sql"] = "UNKNOWN"
		}
		if doc, ok := spec["docfile"]; ok {
			ext["doc"] = doc
		}
		if abstract, ok := spec["abstract"]; ok {
			ext["abstract"] = abstract
		}
		copyCustomProps(spec, ext)
		extensions[name] = ext
	}
	return map[string]interface{}{"extensions": extensions}, nil
}

// upgradeClassifications moves the v1 tags, when present, under the v2
// classifications property.
func upgradeClassifications(v1 map[string]interface{}) map[string]interface{} {
	if tags, ok := v1["tags"]; ok {
		return map[string]interface{}{"tags": tags}
	}
	return nil
}

// upgradeIgnore merges the v1 no_index file and directory lists, either of
// which may be a single string, into the v2 ignore list, dropping
// duplicates.
func upgradeIgnore(v1 map[string]interface{}) []interface{} {
	noIndex, ok := v1["no_index"].(map[string]interface{})
	if !ok {
		return nil
	}
	var ignore []interface{}
	for _, key := range []string{"file", "directory"} {
		switch entries := noIndex[key].(type) {
		case string:
			if !containsValue(ignore, entries) {
				ignore = append(ignore, entries)
			}
		case []interface{}:
			for _, e := range entries {
				if !containsValue(ignore, e) {
					ignore = append(ignore, e)
				}
			}
		}
	}
	return ignore
}

func containsValue(list []interface{}, v interface{}) bool {
	for _, e := range list {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

// maxPGVersion caps the search for the lowest PostgreSQL version named in
// the v1 prereqs.
var maxPGVersion = semver.New(9999, 0, 0, "", "")

// upgradeDependencies converts the v1 prereqs property to the v2
// dependencies property. Phases and relations map one to one except that
// runtime becomes run. Each dependency name becomes a package URL in the
// pgxn namespace, or the postgres namespace for extensions and tools that
// ship with PostgreSQL. Dependencies on PostgreSQL itself instead set the
// postgres.version property to the lowest version named.
func upgradeDependencies(v1 map[string]interface{}) map[string]interface{} {
	prereqs, ok := v1["prereqs"].(map[string]interface{})
	if !ok {
		return nil
	}
	pgVersion := maxPGVersion
	packages := make(map[string]interface{})
	for _, names := range [][2]string{
		{"configure", "configure"},
		{"build", "build"},
		{"test", "test"},
		{"runtime", "run"},
		{"develop", "develop"},
	} {
		phase, ok := prereqs[names[0]].(map[string]interface{})
		if !ok {
			continue
		}
		v2Phase := make(map[string]interface{})
		for _, relation := range []string{"requires", "recommends", "suggests", "conflicts"} {
			deps, ok := phase[relation].(map[string]interface{})
			if !ok {
				continue
			}
			v2Deps := make(map[string]interface{}, len(deps))
			for name, version := range deps {
				ext := strings.ToLower(name)
				if ext == "postgresql" {
					if s, ok := version.(string); ok {
						if v, err := semver.StrictNewVersion(s); err == nil && v.LessThan(pgVersion) {
							pgVersion = v
						}
					}
					continue
				}
				v2Deps["pkg:"+sourceFor(ext)+"/"+ext] = version
			}
			if len(v2Deps) > 0 {
				v2Phase[relation] = v2Deps
			}
		}
		copyCustomProps(phase, v2Phase)
		if len(v2Phase) > 0 {
			packages[names[1]] = v2Phase
		}
	}
	deps := make(map[string]interface{})
	if !pgVersion.Equal(maxPGVersion) {
		deps["postgres"] = map[string]interface{}{"version": pgVersion.String()}
	}
	if len(packages) > 0 {
		copyCustomProps(prereqs, packages)
		deps["packages"] = packages
	}
	if len(deps) == 0 {
		return nil
	}
	return deps
}

// corePackages names the extensions and tools distributed with PostgreSQL
// itself, including some that have come and gone over the years.
var corePackages = map[string]struct{}{
	"adminpack":           {},
	"amcheck":             {},
	"auth_delay":          {},
	"auto_explain":        {},
	"basebackup_to_shell": {},
	"basic_archive":       {},
	"bloom":               {},
	"bool_plperl":         {},
	"btree_gin":           {},
	"btree_gist":          {},
	"chkpass":             {},
	"citext":              {},
	"cube":                {},
	"dblink":              {},
	"dict_int":            {},
	"dict_xsyn":           {},
	"earthdistance":       {},
	"file_fdw":            {},
	"fuzzystrmatch":       {},
	"hstore":              {},
	"hstore_plperl":       {},
	"hstore_plpython":     {},
	"intagg":              {},
	"intarray":            {},
	"isn":                 {},
	"jsonb_plperl":        {},
	"jsonb_plpython":      {},
	"lo":                  {},
	"ltree":               {},
	"ltree_plpython":      {},
	"oid2name":            {},
	"old_snapshot":        {},
	"pageinspect":         {},
	"passwordcheck":       {},
	"pg_buffercache":      {},
	"pg_freespacemap":     {},
	"pg_prewarm":          {},
	"pg_standby":          {},
	"pg_stat_statements":  {},
	"pg_surgery":          {},
	"pg_trgm":             {},
	"pg_visibility":       {},
	"pg_walinspect":       {},
	"pgcrypto":            {},
	"pgrowlocks":          {},
	"pgstattuple":         {},
	"plperl":              {},
	"plperlu":             {},
	"plpgsql":             {},
	"plpython":            {},
	"plpythonu":           {},
	"plpython2u":          {},
	"plpython3u":          {},
	"pltcl":               {},
	"pltclu":              {},
	"postgres_fdw":        {},
	"seg":                 {},
	"sepgsql":             {},
	"spi":                 {},
	"sslinfo":             {},
	"start-scripts":       {},
	"tablefunc":           {},
	"tcn":                 {},
	"test_decoding":       {},
	"tsearch2":            {},
	"tsm_system_rows":     {},
	"tsm_system_time":     {},
	"unaccent":            {},
	"uuid-ossp":           {},
	"vacuumlo":            {},
	"xml2":                {},
}

// sourceFor returns the package URL namespace for the named extension:
// postgres for core extensions and pgxn for everything else.
func sourceFor(ext string) string {
	if _, ok := corePackages[ext]; ok {
		return "postgres"
	}
	return "pgxn"
}

// upgradeResources converts the v1 resources property: bugtracker.web, or a
// mailto URL for bugtracker.mailto, becomes issues, and repository.web,
// falling back to repository.url, becomes repository.
func upgradeResources(v1 map[string]interface{}) map[string]interface{} {
	res, ok := v1["resources"].(map[string]interface{})
	if !ok {
		return nil
	}
	v2Res := make(map[string]interface{})
	if hp, ok := res["homepage"]; ok {
		v2Res["homepage"] = hp
	}
	if bt, ok := res["bugtracker"].(map[string]interface{}); ok {
		if web, ok := bt["web"]; ok {
			v2Res["issues"] = web
		} else if mailto, ok := bt["mailto"].(string); ok {
			v2Res["issues"] = "mailto:" + mailto
		}
	}
	if repo, ok := res["repository"].(map[string]interface{}); ok {
		if web, ok := repo["web"]; ok {
			v2Res["repository"] = web
		} else if url, ok := repo["url"]; ok {
			v2Res["repository"] = url
		}
	}
	copyCustomProps(res, v2Res)
	if len(v2Res) == 0 {
		return nil
	}
	return v2Res
}
