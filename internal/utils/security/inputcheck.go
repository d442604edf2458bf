package security

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Limits bounds the size and character set of externally supplied strings.
type Limits struct {
	MaxString int // generic string max length (flag values, arguments)
	MaxPath   int // file path max length
	AllowNL   bool
	AllowTab  bool
}

func DefaultLimits() Limits {
	return Limits{
		MaxString: 4096,
		MaxPath:   4096,
		AllowNL:   true,
		AllowTab:  true,
	}
}

// ---------- primitive checks ----------

// ValidateString rejects values that are not valid UTF-8, embed NUL bytes,
// exceed the limit, or carry non-printable runes.
func ValidateString(name, s string, lim Limits) error {
	if s == "" {
		return nil
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s: invalid UTF-8", name)
	}
	if strings.ContainsRune(s, '\x00') {
		return fmt.Errorf("%s: contains NUL byte", name)
	}
	if utf8.RuneCountInString(s) > lim.MaxString {
		return fmt.Errorf("%s: too long (%d > %d)", name, utf8.RuneCountInString(s), lim.MaxString)
	}
	for _, r := range s {
		if r == '\n' && lim.AllowNL {
			continue
		}
		if r == '\t' && lim.AllowTab {
			continue
		}
		if !unicode.IsPrint(r) {
			return fmt.Errorf("%s: contains non-printable/control runes", name)
		}
	}
	return nil
}

// ValidatePath applies the string checks to a path value with the path
// length limit.
func ValidatePath(name, s string, lim Limits) error {
	if s == "" {
		return nil
	}
	if utf8.RuneCountInString(s) > lim.MaxPath {
		return fmt.Errorf("%s: path too long (%d > %d)", name, utf8.RuneCountInString(s), lim.MaxPath)
	}
	if err := ValidateString(name, s, lim); err != nil {
		return err
	}
	_ = filepath.Clean(s) // validate only, never mutate the caller's value
	return nil
}

// ---------- struct-wide (config) validation ----------

// ValidateStructStrings walks every string reachable from obj and applies
// the primitive checks to each.
func ValidateStructStrings(obj any, lim Limits) error {
	seen := map[uintptr]bool{}
	return walkValue(reflect.ValueOf(obj), "config", lim, seen)
}

func walkValue(v reflect.Value, path string, lim Limits, seen map[uintptr]bool) error {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		ptr := v.Pointer()
		if seen[ptr] {
			return nil
		}
		seen[ptr] = true
		return walkValue(v.Elem(), path, lim, seen)

	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if !f.CanInterface() {
				continue
			}
			if err := walkValue(f, path+"."+t.Field(i).Name, lim, seen); err != nil {
				return err
			}
		}
	case reflect.Map:
		for _, k := range v.MapKeys() {
			if err := walkValue(v.MapIndex(k), path+"["+fmt.Sprint(k.Interface())+"]", lim, seen); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := walkValue(v.Index(i), fmt.Sprintf("%s[%d]", path, i), lim, seen); err != nil {
				return err
			}
		}
	case reflect.String:
		// Heuristic: treat fields named "*Path" or "*File*" as paths
		lower := strings.ToLower(path)
		if strings.Contains(lower, "path") || strings.Contains(lower, "file") {
			return ValidatePath(path, v.String(), lim)
		}
		return ValidateString(path, v.String(), lim)
	}
	return nil
}

// ---------- Cobra integration ----------

// AttachRecursive installs the flag and argument checks on cmd and every
// subcommand by chaining their PersistentPreRunE hooks.
func AttachRecursive(root *cobra.Command, lim Limits) {
	attach(root, lim)
	for _, c := range root.Commands() {
		AttachRecursive(c, lim)
	}
}

func attach(cmd *cobra.Command, lim Limits) {
	prev := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := validateFlagsAndArgs(c, args, lim); err != nil {
			return err
		}
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
}

func validateFlagsAndArgs(cmd *cobra.Command, args []string, lim Limits) error {
	// Arguments
	for i, a := range args {
		if err := ValidateString(fmt.Sprintf("arg[%d]", i), a, lim); err != nil {
			return err
		}
	}

	// Flags carrying free-form text (string, stringSlice, stringArray)
	var firstErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if firstErr != nil {
			return
		}

		var vals []string
		switch f.Value.Type() {
		case "string":
			v, _ := cmd.Flags().GetString(f.Name)
			vals = []string{v}
		case "stringSlice":
			vals, _ = cmd.Flags().GetStringSlice(f.Name)
		case "stringArray":
			vals, _ = cmd.Flags().GetStringArray(f.Name)
		default:
			return // other flag types carry no free-form text
		}

		// Heuristic: flags named "*path*" or "*file*" hold paths
		lower := strings.ToLower(f.Name)
		isPathy := strings.Contains(lower, "path") || strings.Contains(lower, "file")

		for i, v := range vals {
			if v == "" {
				continue
			}
			name := fmt.Sprintf("flag --%s", f.Name)
			if len(vals) > 1 {
				name = fmt.Sprintf("%s[%d]", name, i)
			}
			if isPathy {
				firstErr = ValidatePath(name, v, lim)
			} else {
				firstErr = ValidateString(name, v, lim)
			}
			if firstErr != nil {
				return
			}
		}
	})
	return firstErr
}
