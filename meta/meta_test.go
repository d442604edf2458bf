package meta

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"

	"github.com/pgxn/meta-go/valid"
)

func TestParseFileCorpus(t *testing.T) {
	for _, version := range []string{"v1", "v2"} {
		files, err := filepath.Glob(filepath.Join("..", "corpus", version, "*.json"))
		if err != nil {
			t.Fatal(err)
		}
		if len(files) == 0 {
			t.Fatalf("no corpus files for %s", version)
		}
		for _, path := range files {
			t.Run(version+"/"+filepath.Base(path), func(t *testing.T) {
				dist, err := ParseFile(path)
				if err != nil {
					t.Fatalf("ParseFile: %v", err)
				}
				if dist.Name == "" {
					t.Error("empty name")
				}
				if dist.Version == nil {
					t.Fatal("nil version")
				}
				// v1 documents upgrade to v2 on the way in.
				if got := dist.Spec.Version.Major(); got != 2 {
					t.Errorf("meta-spec major = %d, want 2", got)
				}
				if len(dist.Maintainers) == 0 {
					t.Error("no maintainers")
				}
				if len(dist.Contents.Extensions) == 0 {
					t.Error("no extensions")
				}
			})
		}
	}
}

// TestRoundTrip decodes each v2 corpus document into a Distribution, encodes
// it back to JSON, and requires the result to carry exactly the same values
// as the original.
func TestRoundTrip(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "corpus", "v2", "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			var want map[string]interface{}
			if err := json.Unmarshal(data, &want); err != nil {
				t.Fatal(err)
			}
			dist, err := Parse(data)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			out, err := json.Marshal(dist)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var got map[string]interface{}
			if err := json.Unmarshal(out, &got); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip changed the document\ngot  %s\nwant %s", jsonString(got), jsonString(want))
			}
		})
	}
}

func TestParsePair(t *testing.T) {
	dist, err := ParseFile(filepath.Join("..", "corpus", "v2", "pair.json"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if dist.Name != "pair" {
		t.Errorf("Name = %q, want %q", dist.Name, "pair")
	}
	if got := dist.Version.String(); got != "0.1.8" {
		t.Errorf("Version = %q, want %q", got, "0.1.8")
	}
	if dist.License != "PostgreSQL" {
		t.Errorf("License = %q, want %q", dist.License, "PostgreSQL")
	}
	if dist.Producer != "pgxn-meta v0.1.0" {
		t.Errorf("Producer = %q, want %q", dist.Producer, "pgxn-meta v0.1.0")
	}
	if got := dist.Spec.Version.String(); got != "2.0.0" {
		t.Errorf("Spec.Version = %q, want %q", got, "2.0.0")
	}

	if len(dist.Maintainers) != 1 {
		t.Fatalf("got %d maintainers, want 1", len(dist.Maintainers))
	}
	m := dist.Maintainers[0]
	if m.Name != "David E. Wheeler" || m.Email != "david@justatheory.com" {
		t.Errorf("maintainer = %+v", m)
	}

	ext, ok := dist.Contents.Extensions["pair"]
	if !ok {
		t.Fatal("no pair extension")
	}
	if ext.Control != "pair.control" {
		t.Errorf("Control = %q, want %q", ext.Control, "pair.control")
	}
	if ext.SQL != "sql/pair.sql" {
		t.Errorf("SQL = %q, want %q", ext.SQL, "sql/pair.sql")
	}
	if ext.Doc != "doc/pair.md" {
		t.Errorf("Doc = %q, want %q", ext.Doc, "doc/pair.md")
	}
	if ext.TLE == nil || !*ext.TLE {
		t.Error("TLE not true")
	}

	deps := dist.Dependencies
	if deps == nil {
		t.Fatal("nil dependencies")
	}
	if deps.Pipeline != PipelinePgxs {
		t.Errorf("Pipeline = %q, want %q", deps.Pipeline, PipelinePgxs)
	}
	if got := deps.Postgres.Version.String(); got != ">= 9.1.0" {
		t.Errorf("postgres version = %q, want %q", got, ">= 9.1.0")
	}
	rng, err := deps.Postgres.Version.Range()
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if !rng.Satisfied(semver.MustParse("9.2.0")) {
		t.Error("range rejects 9.2.0")
	}
	if rng.Satisfied(semver.MustParse("9.0.0")) {
		t.Error("range accepts 9.0.0")
	}

	res := dist.Resources
	if res == nil {
		t.Fatal("nil resources")
	}
	if res.Homepage != "https://pgxn.org/dist/pair/" {
		t.Errorf("Homepage = %q", res.Homepage)
	}
	if res.Repository != "https://github.com/theory/kv-pair" {
		t.Errorf("Repository = %q", res.Repository)
	}
	if len(res.Badges) != 1 || res.Badges[0].Alt != "CI Status" {
		t.Errorf("Badges = %+v", res.Badges)
	}

	if want := []string{".git", "/.github", "*.html"}; !reflect.DeepEqual(dist.Ignore, want) {
		t.Errorf("Ignore = %v, want %v", dist.Ignore, want)
	}
	if len(dist.Artifacts) != 1 {
		t.Fatalf("got %d artifacts, want 1", len(dist.Artifacts))
	}
	if a := dist.Artifacts[0]; a.Type != "zip" || len(a.SHA256) != 64 {
		t.Errorf("artifact = %+v", a)
	}
	if dist.Classifications == nil || len(dist.Classifications.Tags) != 3 {
		t.Errorf("Classifications = %+v", dist.Classifications)
	}
}

func TestIgnored(t *testing.T) {
	dist, err := ParseFile(filepath.Join("..", "corpus", "v2", "pair.json"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	for _, tc := range []struct {
		path string
		want bool
	}{
		{".git", true},
		{".git/config", true},
		{"/.git", true},
		{".github", true},
		{".github/workflows/ci.yml", true},
		{"index.html", true},
		{"doc/index.html", false},
		{"README.md", false},
		{"/README.md", false},
		{".gitignore", false},
		{"sql/pair.sql", false},
	} {
		if got := dist.Ignored(tc.path); got != tc.want {
			t.Errorf("Ignored(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	t.Run("bad json", func(t *testing.T) {
		if _, err := Parse([]byte("[")); err == nil {
			t.Error("expected an error, got nil")
		}
	})
	t.Run("no meta-spec", func(t *testing.T) {
		_, err := Parse([]byte(`{"name":"pair"}`))
		if !errors.Is(err, valid.ErrUnknownSpec) {
			t.Errorf("got %v, want ErrUnknownSpec", err)
		}
	})
	t.Run("null meta-spec version", func(t *testing.T) {
		_, err := Parse([]byte(`{"meta-spec":{"version":null}}`))
		if !errors.Is(err, valid.ErrUnknownSpec) {
			t.Errorf("got %v, want ErrUnknownSpec", err)
		}
	})
	t.Run("unsupported version", func(t *testing.T) {
		_, err := fromVersion(99, map[string]interface{}{})
		if !errors.Is(err, valid.ErrUnknownSpec) {
			t.Errorf("got %v, want ErrUnknownSpec", err)
		}
	})
	t.Run("schema violation", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join("..", "corpus", "v2", "minimal.json"))
		if err != nil {
			t.Fatal(err)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatal(err)
		}
		delete(doc, "version")
		_, err = FromValue(doc)
		var verr *valid.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("got %T, want ValidationError", err)
		}
		if len(verr.Violations) == 0 {
			t.Error("no violations reported")
		}
	})
	t.Run("missing file", func(t *testing.T) {
		if _, err := ParseFile(filepath.Join("..", "corpus", "nonesuch.json")); err == nil {
			t.Error("expected an error, got nil")
		}
	})
}

// TestFromValueSemanticError exercises a rule the schemas cannot express:
// every maintainer needs an email or a URL, though only the name is
// structurally required.
func TestFromValueSemanticError(t *testing.T) {
	doc := decodeMap(t, `{
		"name": "pair",
		"abstract": "A key/value pair data type",
		"version": "0.1.8",
		"maintainers": [{"name": "theory"}],
		"license": "PostgreSQL",
		"contents": {"extensions": {"pair": {"sql": "sql/pair.sql", "control": "pair.control"}}},
		"meta-spec": {"version": "2.0.0"}
	}`)
	_, err := FromValue(doc)
	var serr *SemanticError
	if !errors.As(err, &serr) {
		t.Fatalf("got %T (%v), want SemanticError", err, err)
	}
	if serr.Field != "/maintainers/0" {
		t.Errorf("Field = %q, want %q", serr.Field, "/maintainers/0")
	}
	if !strings.Contains(serr.Error(), "email or url") {
		t.Errorf("Error = %q", serr.Error())
	}
}

func TestCheckDistribution(t *testing.T) {
	base := `{
		"name": "pair",
		"abstract": "A key/value pair data type",
		"version": "0.1.8",
		"maintainers": [{"name": "theory", "email": "theory@pgxn.org"}],
		"license": "PostgreSQL",
		"contents": {"extensions": {"pair": {"sql": "sql/pair.sql", "control": "pair.control"}}},
		"meta-spec": {"version": "2.0.0"}
	}`
	for _, tc := range []struct {
		name  string
		patch string
		field string
	}{
		{"valid", `{}`, ""},
		{"short name", `{"name":"a"}`, "/name"},
		{"slash name", `{"name":"pg/pair"}`, "/name"},
		{"no version", `{"version":null}`, "/version"},
		{"lax version", `{"version":"1.2"}`, "/version"},
		{"bad license", `{"license":"Unicorn-99"}`, "/license"},
		{"v1 meta-spec", `{"meta-spec":{"version":"1.0.0"}}`, "/meta-spec/version"},
		{"maintainer no contact", `{"maintainers":[{"name":"theory"}]}`, "/maintainers/0"},
		{"maintainer bad email", `{"maintainers":[{"name":"theory","email":"not-an-email"}]}`, "/maintainers/0/email"},
		{"no contents", `{"contents":null}`, "/contents"},
		{"bad extension term", `{"contents":{"extensions":{"pair":null,"a":{"sql":"sql/a.sql","control":"a.control"}}}}`, "/contents/extensions/a"},
		{"absolute sql path", `{"contents":{"extensions":{"pair":{"sql":"/sql/pair.sql"}}}}`, "/contents/extensions/pair/sql"},
		{"parent control path", `{"contents":{"extensions":{"pair":{"control":"../pair.control"}}}}`, "/contents/extensions/pair/control"},
		{"absolute module lib", `{"contents":{"modules":{"worker":{"type":"bgw","lib":"/lib/worker"}}}}`, "/contents/modules/worker/lib"},
		{"absolute app bin", `{"contents":{"apps":{"sqitch":{"lang":"perl","bin":"/bin/sqitch"}}}}`, "/contents/apps/sqitch/bin"},
		{"bad ignore glob", `{"ignore":["fo[o"]}`, "/ignore/0"},
		{"bad tag", `{"classifications":{"tags":["x"]}}`, "/classifications/tags/0"},
		{"bad platform", `{"dependencies":{"platforms":["amiga"]}}`, "/dependencies/platforms/0"},
		{"bad postgres range", `{"dependencies":{"postgres":{"version":"nope"}}}`, "/dependencies/postgres/version"},
		{"bad purl", `{"dependencies":{"packages":{"run":{"requires":{"pair":"1.0.0"}}}}}`, "/dependencies/packages/run/requires/pair"},
		{"bad dep range", `{"dependencies":{"packages":{"run":{"requires":{"pkg:pgxn/pair":"oops"}}}}}`, "/dependencies/packages/run/requires/pkg:pgxn/pair"},
		{
			name:  "variation missing where",
			patch: `{"dependencies":{"variations":[{"dependencies":{"pipeline":"pgxs"}}]}}`,
			field: "/dependencies/variations/0",
		},
		{
			name:  "nested variations",
			patch: `{"dependencies":{"variations":[{"where":{"platforms":["linux"]},"dependencies":{"variations":[{"where":{"platforms":["any"]},"dependencies":{"pipeline":"pgxs"}}]}}]}}`,
			field: "/dependencies/variations/0/dependencies/variations/0",
		},
		{"artifact no digest", `{"artifacts":[{"url":"https://example.com/pair.zip","type":"zip"}]}`, "/artifacts/0"},
		{"artifact bad hex", `{"artifacts":[{"url":"https://example.com/pair.zip","type":"zip","sha256":"0123"}]}`, "/artifacts/0/sha256"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Merge(decodeMap(t, base), decodeMap(t, tc.patch))
			if err != nil {
				t.Fatalf("Merge: %v", err)
			}
			data, err := json.Marshal(doc)
			if err != nil {
				t.Fatal(err)
			}
			var d Distribution
			if err := json.Unmarshal(data, &d); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			err = checkDistribution(&d)
			if tc.field == "" {
				if err != nil {
					t.Fatalf("checkDistribution: %v", err)
				}
				return
			}
			var serr *SemanticError
			if !errors.As(err, &serr) {
				t.Fatalf("got %T (%v), want SemanticError", err, err)
			}
			if serr.Field != tc.field {
				t.Errorf("Field = %q (%s), want %q", serr.Field, serr.Reason, tc.field)
			}
		})
	}
}

func TestCustomProps(t *testing.T) {
	src := `{
		"name": "pair",
		"abstract": "A key/value pair data type",
		"version": "0.1.8",
		"maintainers": [{"name": "theory", "email": "theory@pgxn.org", "x_mastodon": "@theory@xn.social"}],
		"license": "PostgreSQL",
		"contents": {"extensions": {"pair": {"sql": "sql/pair.sql", "control": "pair.control", "x_ext": 1}}},
		"meta-spec": {"version": "2.0.0", "X_checked": true},
		"x_vim": "nanoisfine",
		"other": "not custom"
	}`
	var d Distribution
	if err := json.Unmarshal([]byte(src), &d); err != nil {
		t.Fatal(err)
	}
	if got := d.Custom["x_vim"]; got != "nanoisfine" {
		t.Errorf(`Custom["x_vim"] = %v`, got)
	}
	if _, ok := d.Custom["other"]; ok {
		t.Error("non-custom key retained")
	}
	if got := d.Maintainers[0].Custom["x_mastodon"]; got != "@theory@xn.social" {
		t.Errorf(`maintainer custom = %v`, got)
	}
	if got := d.Contents.Extensions["pair"].Custom["x_ext"]; got != 1.0 {
		t.Errorf(`extension custom = %v`, got)
	}
	if got := d.Spec.Custom["X_checked"]; got != true {
		t.Errorf(`spec custom = %v`, got)
	}

	// Custom properties survive re-encoding.
	out, err := json.Marshal(&d)
	if err != nil {
		t.Fatal(err)
	}
	var round map[string]interface{}
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatal(err)
	}
	if got := round["x_vim"]; got != "nanoisfine" {
		t.Errorf(`marshaled x_vim = %v`, got)
	}
	if _, ok := round["other"]; ok {
		t.Error("non-custom key resurfaced")
	}
	spec := round["meta-spec"].(map[string]interface{})
	if got := spec["X_checked"]; got != true {
		t.Errorf(`marshaled X_checked = %v`, got)
	}
}

func TestLegacyHowto(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "corpus", "v1", "howto.json"))
	if err != nil {
		t.Fatal(err)
	}
	l, err := ParseLegacy(data)
	if err != nil {
		t.Fatalf("ParseLegacy: %v", err)
	}
	if l.Name != "pair" {
		t.Errorf("Name = %q, want %q", l.Name, "pair")
	}
	if got := l.Version.String(); got != "0.1.8" {
		t.Errorf("Version = %q, want %q", got, "0.1.8")
	}
	if want := (StringList{"David E. Wheeler <david@justatheory.com>"}); !reflect.DeepEqual(l.Maintainer, want) {
		t.Errorf("Maintainer = %v, want %v", l.Maintainer, want)
	}
	if want := []string{"postgresql"}; !reflect.DeepEqual(l.License.Names, want) {
		t.Errorf("License = %+v, want names %v", l.License, want)
	}
	if got := l.Spec.Version.String(); got != "1.0.0" {
		t.Errorf("Spec.Version = %q, want %q", got, "1.0.0")
	}
	ext, ok := l.Provides["pair"]
	if !ok {
		t.Fatal("no pair in provides")
	}
	if ext.File != "sql/pair.sql" || ext.Docfile != "doc/pair.md" {
		t.Errorf("extension = %+v", ext)
	}
	if got := ext.Version.String(); got != "0.1.8" {
		t.Errorf("extension version = %q, want %q", got, "0.1.8")
	}

	dist, err := l.Upgrade()
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if dist.Name != "pair" {
		t.Errorf("upgraded Name = %q, want %q", dist.Name, "pair")
	}
	if got := dist.Spec.Version.Major(); got != 2 {
		t.Errorf("upgraded meta-spec major = %d, want 2", got)
	}
	up, ok := dist.Contents.Extensions["pair"]
	if !ok {
		t.Fatal("no pair extension after upgrade")
	}
	if up.SQL != "sql/pair.sql" {
		t.Errorf("SQL = %q, want %q", up.SQL, "sql/pair.sql")
	}
	if up.Control != "pair.control" {
		t.Errorf("Control = %q, want %q", up.Control, "pair.control")
	}
	if up.Doc != "doc/pair.md" {
		t.Errorf("Doc = %q, want %q", up.Doc, "doc/pair.md")
	}
	if dist.License != "PostgreSQL" {
		t.Errorf("License = %q, want %q", dist.License, "PostgreSQL")
	}
	if len(dist.Maintainers) != 1 || dist.Maintainers[0].Email != "david@justatheory.com" {
		t.Errorf("Maintainers = %+v", dist.Maintainers)
	}
}

func TestLegacyWidget(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "corpus", "v1", "widget.json"))
	if err != nil {
		t.Fatal(err)
	}
	l, err := ParseLegacy(data)
	if err != nil {
		t.Fatalf("ParseLegacy: %v", err)
	}
	if len(l.Maintainer) != 2 {
		t.Errorf("Maintainer = %v", l.Maintainer)
	}
	if l.License.URLs["PostgreSQL"] == "" {
		t.Errorf("License = %+v", l.License)
	}
	if got := l.Provides["widget"].File; got != "sql/widget.sql.in" {
		t.Errorf("File = %q", got)
	}
	if l.ReleaseStatus != "stable" {
		t.Errorf("ReleaseStatus = %q, want %q", l.ReleaseStatus, "stable")
	}
	if l.GeneratedBy != "David E. Wheeler" {
		t.Errorf("GeneratedBy = %q", l.GeneratedBy)
	}
	if want := []string{"widget", "gadget", "full text search"}; !reflect.DeepEqual(l.Tags, want) {
		t.Errorf("Tags = %v, want %v", l.Tags, want)
	}

	run := l.Prereqs.Runtime
	if run == nil {
		t.Fatal("no runtime prereqs")
	}
	if got := run.Requires["PostgreSQL"].String(); got != "8.0.0" {
		t.Errorf("requires PostgreSQL = %q", got)
	}
	if !run.Requires["plpgsql"].IsZero() {
		t.Error("plpgsql range not zero")
	}
	if got := run.Recommends["PostgreSQL"].String(); got != "8.4.0" {
		t.Errorf("recommends PostgreSQL = %q", got)
	}

	// The string form of no_index promotes to a single-element list.
	if want := (StringList{"src/secret.sql"}); !reflect.DeepEqual(l.NoIndex.File, want) {
		t.Errorf("NoIndex.File = %v, want %v", l.NoIndex.File, want)
	}
	if want := (StringList{"doc/private"}); !reflect.DeepEqual(l.NoIndex.Directory, want) {
		t.Errorf("NoIndex.Directory = %v, want %v", l.NoIndex.Directory, want)
	}

	dist, err := l.Upgrade()
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if dist.License != "PostgreSQL" {
		t.Errorf("License = %q, want %q", dist.License, "PostgreSQL")
	}
	if got := dist.Dependencies.Postgres.Version.String(); got != "8.0.0" {
		t.Errorf("postgres version = %q, want %q", got, "8.0.0")
	}
	req := dist.Dependencies.Packages.Run.Requires
	rng, ok := req["pkg:postgres/plpgsql"]
	if !ok {
		t.Fatalf("requires = %v", req)
	}
	if !rng.IsZero() {
		t.Error("plpgsql range not zero after upgrade")
	}
	if want := []string{"src/secret.sql", "doc/private"}; !reflect.DeepEqual(dist.Ignore, want) {
		t.Errorf("Ignore = %v, want %v", dist.Ignore, want)
	}
	res := dist.Resources
	if res == nil {
		t.Fatal("nil resources")
	}
	if res.Issues != "https://github.com/example/widget/issues" {
		t.Errorf("Issues = %q", res.Issues)
	}
	if res.Repository != "https://github.com/example/widget" {
		t.Errorf("Repository = %q", res.Repository)
	}
	if dist.Producer != "David E. Wheeler" {
		t.Errorf("Producer = %q", dist.Producer)
	}
}

func TestLegacyFromValueErrors(t *testing.T) {
	t.Run("v2 document", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join("..", "corpus", "v2", "minimal.json"))
		if err != nil {
			t.Fatal(err)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatal(err)
		}
		_, err = LegacyFromValue(doc)
		if err == nil || !strings.Contains(err.Error(), "expected a v1 document") {
			t.Errorf("got %v", err)
		}
	})
	t.Run("schema violation", func(t *testing.T) {
		_, err := ParseLegacy([]byte(`{"name":"pair","meta-spec":{"version":"1.0.0"}}`))
		var verr *valid.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("got %T (%v), want ValidationError", err, err)
		}
	})
}

// TestUpgradeHandBuilt converts a LegacyDistribution constructed in code
// rather than decoded from JSON.
func TestUpgradeHandBuilt(t *testing.T) {
	l := &LegacyDistribution{
		Name:       "pair",
		Version:    semver.MustParse("0.1.8"),
		Abstract:   "A key/value pair data type",
		Maintainer: StringList{"David E. Wheeler <theory@pgxn.org>"},
		License:    LegacyLicense{Names: []string{"postgresql"}},
		Spec:       Spec{Version: semver.MustParse("1.0.0")},
		Provides: map[string]LegacyExtension{
			"pair": {File: "sql/pair.sql", Version: semver.MustParse("0.1.8")},
		},
	}
	dist, err := l.Upgrade()
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if got := dist.Contents.Extensions["pair"].SQL; got != "sql/pair.sql" {
		t.Errorf("SQL = %q, want %q", got, "sql/pair.sql")
	}
	if len(dist.Maintainers) != 1 || dist.Maintainers[0].Email != "theory@pgxn.org" {
		t.Errorf("Maintainers = %+v", dist.Maintainers)
	}
}
