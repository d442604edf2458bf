package grammar

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrAbsolute is returned for paths that start with a slash.
	ErrAbsolute = errors.New("path is absolute")
	// ErrParentDir is returned for paths containing a parent directory
	// segment.
	ErrParentDir = errors.New("path references parent directory")
	// ErrCurrentDir is returned for paths containing a current directory
	// segment anywhere but the start.
	ErrCurrentDir = errors.New("path references current directory")
)

// CheckPath checks that s is a relative, slash-separated path that stays
// inside the distribution root: no parent directory segment anywhere, and a
// current directory segment only as the very first segment, so "./README"
// is fine but "a/./b" is not. The empty path is allowed; schemas impose
// minimum lengths where a path is required.
func CheckPath(s string) error {
	if strings.HasPrefix(s, "/") {
		return ErrAbsolute
	}
	return checkSegments(s)
}

// CheckGlob checks that s is a valid glob pattern whose literal segments
// obey the same traversal rules as CheckPath. A leading slash is allowed
// and anchors the pattern to the distribution root.
func CheckGlob(s string) error {
	if !doublestar.ValidatePattern(s) {
		return doublestar.ErrBadPattern
	}
	return checkSegments(strings.TrimPrefix(s, "/"))
}

func checkSegments(s string) error {
	for i, seg := range strings.Split(s, "/") {
		switch seg {
		case "..":
			return ErrParentDir
		case ".":
			if i > 0 {
				return ErrCurrentDir
			}
		}
	}
	return nil
}
