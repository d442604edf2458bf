// Package grammar implements the string grammars used by PGXN metadata
// fields beyond what JSON Schema patterns express: terms and tags, paths
// and globs, semantic versions and version ranges, package URLs, SPDX
// license expressions, platform identifiers, and digest hex strings.
//
// The schema layer applies these grammars as regular expressions and custom
// formats where it can; the typed model re-checks every primitive field
// through this package, since percent-decoding, SPDX list membership, and
// version range semantics cannot be expressed as patterns.
package grammar

import (
	"unicode"
	"unicode/utf8"
)

// IsTerm reports whether s is a valid term as used for object keys such as
// extension names: at least two characters, none of which may be a space,
// slash, backslash, dot, or control character.
func IsTerm(s string) bool {
	return isTerm(s, false)
}

// IsLegacyTerm reports whether s is a valid v1 term. The v1 grammar is the
// same as the v2 grammar except that dots are allowed.
func IsLegacyTerm(s string) bool {
	return isTerm(s, true)
}

// IsName reports whether s is a valid distribution name. Distribution names
// follow the term grammar but allow dots, as in "pgTAP-0.98".
func IsName(s string) bool {
	return isTerm(s, true)
}

func isTerm(s string, allowDot bool) bool {
	if utf8.RuneCountInString(s) < 2 {
		return false
	}
	for _, r := range s {
		switch {
		case r == '/' || r == '\\':
			return false
		case r == '.' && !allowDot:
			return false
		case unicode.IsSpace(r) || unicode.IsControl(r):
			return false
		}
	}
	return true
}

// IsTag reports whether s is a valid classification tag: between 2 and 255
// characters, none of which may be a slash, backslash, or control
// character. Unlike terms, tags may contain spaces.
func IsTag(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 2 || n > 255 {
		return false
	}
	for _, r := range s {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
