package grammar

import "testing"

// Semver cases from https://regex101.com/r/Ly7O1x/3/, linked from
// the semver.org FAQ.
var validSemvers = []string{
	"0.0.4",
	"1.2.3",
	"10.20.30",
	"1.1.2-prerelease+meta",
	"1.1.2+meta",
	"1.1.2+meta-valid",
	"1.0.0-alpha",
	"1.0.0-beta",
	"1.0.0-alpha.beta",
	"1.0.0-alpha.beta.1",
	"1.0.0-alpha.1",
	"1.0.0-alpha0.valid",
	"1.0.0-alpha.0valid",
	"1.0.0-alpha-a.b-c-something-long+build.1-aef.1-its-okay",
	"1.0.0-rc.1+build.1",
	"2.0.0-rc.1+build.123",
	"1.2.3-beta",
	"10.2.3-DEV-SNAPSHOT",
	"1.2.3-SNAPSHOT-123",
	"1.0.0",
	"2.0.0",
	"1.1.7",
	"2.0.0+build.1848",
	"2.0.1-alpha.1227",
	"1.0.0-alpha+beta",
	"1.2.3----RC-SNAPSHOT.12.9.1--.12+788",
	"1.2.3----R-S.12.9.1--.12+meta",
	"1.2.3----RC-SNAPSHOT.12.9.1--.12",
	"1.0.0+0.build.1-rc.10000aaa-kk-0.1",
	"1.0.0-0A.is.legal",
}

var invalidSemvers = []string{
	"1",
	"1.2",
	"1.2.3-0123",
	"1.2.3-0123.0123",
	"1.1.2+.123",
	"+invalid",
	"-invalid",
	"-invalid+invalid",
	"-invalid.01",
	"alpha",
	"alpha.beta",
	"alpha.beta.1",
	"alpha.1",
	"alpha+beta",
	"alpha_beta",
	"alpha.",
	"alpha..",
	"beta",
	"1.0.0-alpha_beta",
	"-alpha.",
	"1.0.0-alpha..",
	"1.0.0-alpha..1",
	"1.0.0-alpha...1",
	"01.1.1",
	"1.01.1",
	"1.1.01",
	"1.2.3.DEV",
	"1.2-SNAPSHOT",
	"1.2.31.2.3----RC-SNAPSHOT.12.09.1--..12+788",
	"1.2-RC-SNAPSHOT",
	"-1.0.3-gamma+b7718",
	"+just-meta",
	"9.8.7+meta+meta",
	"9.8.7-whatever+meta+meta",
	"99999999999999999999999.999999999999999999.99999999999999999----RC-SNAPSHOT.12.09.1--------------------------------..12",
}

func TestParseVersion(t *testing.T) {
	for _, s := range validSemvers {
		if _, err := ParseVersion(s); err != nil {
			t.Errorf("ParseVersion(%q) = %v, want nil", s, err)
		}
		if !IsVersion(s) {
			t.Errorf("IsVersion(%q) = false, want true", s)
		}
	}
	for _, s := range invalidSemvers {
		if _, err := ParseVersion(s); err == nil {
			t.Errorf("ParseVersion(%q) succeeded, want error", s)
		}
		if IsVersion(s) {
			t.Errorf("IsVersion(%q) = true, want false", s)
		}
	}
}

func TestParseVersionRange(t *testing.T) {
	cases := []struct {
		name  string
		input string
		cons  []string
	}{
		{"zero", "0", nil},
		{"zero with op", ">= 0", nil},
		{"bare major", "14", []string{">= 14.0.0"}},
		{"bare pair", "9.6", []string{">= 9.6.0"}},
		{"bare triple", "1.2.0", []string{">= 1.2.0"}},
		{"explicit op", ">= 16.0", []string{">= 16.0.0"}},
		{"exact", "==2.1.3", []string{"== 2.1.3"}},
		{"not equal", "!= 12", []string{"!= 12.0.0"}},
		{"less than", "<4", []string{"< 4.0.0"}},
		{"at most", "<= 3.3", []string{"<= 3.3.0"}},
		{"prerelease", ">1.0.0-beta.1", []string{"> 1.0.0-beta.1"}},
		{
			"conjunction",
			">= 2.0.0, != 2.1.3, < 4.0.0",
			[]string{">= 2.0.0", "!= 2.1.3", "< 4.0.0"},
		},
		{
			"mixed sugar",
			"1.2, < 2.0",
			[]string{">= 1.2.0", "< 2.0.0"},
		},
	}
	for _, tc := range cases {
		r, err := ParseVersionRange(tc.input)
		if err != nil {
			t.Errorf("%s: ParseVersionRange(%q) = %v, want nil", tc.name, tc.input, err)
			continue
		}
		if tc.cons == nil {
			if !r.IsAny() {
				t.Errorf("%s: expected the any-version range", tc.name)
			}
			continue
		}
		got := r.Constraints()
		if len(got) != len(tc.cons) {
			t.Errorf("%s: got %d constraints, want %d", tc.name, len(got), len(tc.cons))
			continue
		}
		for i, want := range tc.cons {
			have := got[i].Op + " " + got[i].Version.String()
			if have != want {
				t.Errorf("%s: constraint %d is %q, want %q", tc.name, i, have, want)
			}
		}
	}

	for _, bad := range []string{"", "one", ">= one", "1.0.0 2.0.0", "=1.0.0", ">= 1.0,"} {
		if _, err := ParseVersionRange(bad); err == nil {
			t.Errorf("ParseVersionRange(%q) succeeded, want error", bad)
		}
	}
}

func TestVersionRangeSatisfied(t *testing.T) {
	r, err := ParseVersionRange(">= 1.2, != 1.5.2, < 2.0")
	if err != nil {
		t.Fatalf("ParseVersionRange: %v", err)
	}
	cases := []struct {
		version string
		want    bool
	}{
		{"1.2.0", true},
		{"1.9.9", true},
		{"1.5.1", true},
		{"1.5.2", false},
		{"2.0.0", false},
		{"1.1.9", false},
		{"2.1.0", false},
	}
	for _, tc := range cases {
		v, err := ParseVersion(tc.version)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", tc.version, err)
		}
		if got := r.Satisfied(v); got != tc.want {
			t.Errorf("Satisfied(%s) = %v, want %v", tc.version, got, tc.want)
		}
	}

	any, err := ParseVersionRange("0")
	if err != nil {
		t.Fatalf("ParseVersionRange: %v", err)
	}
	v, _ := ParseVersion("0.0.1")
	if !any.Satisfied(v) {
		t.Error("the any-version range rejected 0.0.1")
	}
}
