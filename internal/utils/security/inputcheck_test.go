package security

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestValidateString(t *testing.T) {
	lim := DefaultLimits()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"plain", "pair", false},
		{"empty", "", false},
		{"unicode", "データベース", false},
		{"nul byte", "a\x00b", true},
		{"control rune", "ab", true},
		{"invalid utf-8", string([]byte{0xff, 0xfe, 0xfd}), true},
		{"too long", strings.Repeat("a", lim.MaxString+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateString(tt.name, tt.value, lim)
			if tt.wantErr && err == nil {
				t.Errorf("expected %s to be rejected", tt.name)
			} else if !tt.wantErr && err != nil {
				t.Errorf("expected %s to pass: %v", tt.name, err)
			}
		})
	}
}

func TestValidateStringNewlineAndTab(t *testing.T) {
	lim := DefaultLimits()
	lim.AllowNL = false
	lim.AllowTab = false

	if err := ValidateString("nl", "a\nb", lim); err == nil {
		t.Error("newline should be rejected when AllowNL is false")
	}
	if err := ValidateString("tab", "a\tb", lim); err == nil {
		t.Error("tab should be rejected when AllowTab is false")
	}

	lim.AllowNL = true
	lim.AllowTab = true
	if err := ValidateString("nl", "a\nb", lim); err != nil {
		t.Errorf("newline should be allowed: %v", err)
	}
	if err := ValidateString("tab", "a\tb", lim); err != nil {
		t.Errorf("tab should be allowed: %v", err)
	}
}

func TestValidatePath(t *testing.T) {
	lim := DefaultLimits()

	if err := ValidatePath("path", "META.json", lim); err != nil {
		t.Errorf("valid path rejected: %v", err)
	}
	if err := ValidatePath("path", "a\x00b", lim); err == nil {
		t.Error("NUL in path should be rejected")
	}

	lim.MaxPath = 8
	if err := ValidatePath("path", "dist/pair/0.1.8/pair-0.1.8.zip", lim); err == nil {
		t.Error("path beyond MaxPath should be rejected")
	}
}

func TestValidateStructStrings(t *testing.T) {
	type inner struct {
		FilePath string
	}
	type outer struct {
		Name  string
		Inner inner
		Tags  []string
		Meta  map[string]string
	}
	lim := DefaultLimits()

	o := outer{
		Name:  "pair",
		Inner: inner{FilePath: "META.json"},
		Tags:  []string{"key value", "pair"},
		Meta:  map[string]string{"license": "PostgreSQL"},
	}
	if err := ValidateStructStrings(o, lim); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	o.Inner.FilePath = "bad\x00path"
	if err := ValidateStructStrings(o, lim); err == nil {
		t.Error("NUL in nested path field should be rejected")
	}
	o.Inner.FilePath = "META.json"

	o.Tags[1] = "bad\x00"
	if err := ValidateStructStrings(o, lim); err == nil {
		t.Error("NUL in slice element should be rejected")
	}
	o.Tags[1] = "pair"

	o.Meta["license"] = "bad\x00"
	if err := ValidateStructStrings(o, lim); err == nil {
		t.Error("NUL in map value should be rejected")
	}
}

func TestValidateStructStringsPointerCycle(t *testing.T) {
	type node struct {
		Value string
		Next  *node
	}
	lim := DefaultLimits()

	n1 := &node{Value: "ok"}
	n2 := &node{Value: "ok", Next: n1}
	n1.Next = n2

	if err := ValidateStructStrings(n1, lim); err != nil {
		t.Fatalf("pointer cycle must not error: %v", err)
	}

	n2.Value = "bad\x00"
	if err := ValidateStructStrings(n1, lim); err == nil {
		t.Error("NUL reachable through a cycle should be rejected")
	}
}

func TestValidateFlagsAndArgs(t *testing.T) {
	lim := DefaultLimits()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("name", "ok", "")
	cmd.Flags().String("output-file", "META.json", "")
	cmd.Flags().StringSlice("paths", []string{"a.json", "b.json"}, "")
	cmd.Flags().StringArray("patch", []string{"x.json"}, "")

	args := []string{"META.json"}
	if err := validateFlagsAndArgs(cmd, args, lim); err != nil {
		t.Fatalf("valid flags and args rejected: %v", err)
	}

	if err := validateFlagsAndArgs(cmd, []string{"bad\x00arg"}, lim); err == nil {
		t.Error("NUL in argument should be rejected")
	}

	mustSet := func(flag, value string) {
		t.Helper()
		if err := cmd.Flags().Set(flag, value); err != nil {
			t.Fatalf("setting --%s: %v", flag, err)
		}
	}

	mustSet("name", "bad\x00")
	if err := validateFlagsAndArgs(cmd, args, lim); err == nil {
		t.Error("NUL in string flag should be rejected")
	}
	mustSet("name", "ok")

	mustSet("output-file", "bad\x00")
	if err := validateFlagsAndArgs(cmd, args, lim); err == nil {
		t.Error("NUL in file flag should be rejected")
	}
	mustSet("output-file", "META.json")

	mustSet("paths", "a.json,bad\x00")
	if err := validateFlagsAndArgs(cmd, args, lim); err == nil {
		t.Error("NUL in stringSlice flag should be rejected")
	}
	mustSet("paths", "a.json,b.json")

	mustSet("patch", "bad\x00")
	if err := validateFlagsAndArgs(cmd, args, lim); err == nil {
		t.Error("NUL in stringArray flag should be rejected")
	}
}

func TestAttachRecursive(t *testing.T) {
	root := &cobra.Command{Use: "root"}
	child := &cobra.Command{Use: "child"}
	root.AddCommand(child)
	AttachRecursive(root, DefaultLimits())

	root.Flags().String("name", "ok", "")
	child.Flags().String("name", "ok", "")

	if err := root.PersistentPreRunE(root, []string{"META.json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := child.Flags().Set("name", "bad\x00"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	if err := child.PersistentPreRunE(child, []string{"META.json"}); err == nil {
		t.Error("expected the child hook to reject the bad flag")
	}
}
