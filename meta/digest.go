package meta

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Digests holds one or more hex-encoded hashes of a release archive. At
// least one of the three algorithms is always present in a valid release
// payload.
type Digests struct {
	SHA1   string `json:"sha1,omitempty"`
	SHA256 string `json:"sha256,omitempty"`
	SHA512 string `json:"sha512,omitempty"`
}

// NewDigests computes all three digests of content, for assembling release
// payloads for new distributions.
func NewDigests(content []byte) Digests {
	s1 := sha1.Sum(content)
	s256 := sha256.Sum256(content)
	s512 := sha512.Sum512(content)
	return Digests{
		SHA1:   hex.EncodeToString(s1[:]),
		SHA256: hex.EncodeToString(s256[:]),
		SHA512: hex.EncodeToString(s512[:]),
	}
}

// DigestMismatchError reports content whose hash differs from a recorded
// digest.
type DigestMismatchError struct {
	Algorithm string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("%s digest does not match the content", e.Algorithm)
}

// Strongest returns the name of the strongest digest present, or an empty
// string when none is.
func (d *Digests) Strongest() string {
	switch {
	case d.SHA512 != "":
		return "sha512"
	case d.SHA256 != "":
		return "sha256"
	case d.SHA1 != "":
		return "sha1"
	}
	return ""
}

// Verify hashes content with every algorithm recorded in d and compares
// the results. Every recorded digest must match; verifying an empty
// digest set is an error. Comparisons run in constant time.
func (d *Digests) Verify(content []byte) error {
	if d.SHA1 == "" && d.SHA256 == "" && d.SHA512 == "" {
		return errors.New("no digests to verify")
	}
	if d.SHA1 != "" {
		sum := sha1.Sum(content)
		if err := compareDigest("sha1", d.SHA1, sum[:]); err != nil {
			return err
		}
	}
	if d.SHA256 != "" {
		sum := sha256.Sum256(content)
		if err := compareDigest("sha256", d.SHA256, sum[:]); err != nil {
			return err
		}
	}
	if d.SHA512 != "" {
		sum := sha512.Sum512(content)
		if err := compareDigest("sha512", d.SHA512, sum[:]); err != nil {
			return err
		}
	}
	return nil
}

func compareDigest(algo, want string, sum []byte) error {
	got := hex.EncodeToString(sum)
	if subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(want))) != 1 {
		return &DigestMismatchError{Algorithm: algo}
	}
	return nil
}
