package grammar

import (
	"encoding/hex"
	"fmt"
)

// DigestHexLen maps each recognized digest algorithm to the length of its
// hex encoding.
var DigestHexLen = map[string]int{
	"sha1":   40,
	"sha256": 64,
	"sha512": 128,
}

// CheckDigestHex checks that digest is a well-formed hex encoding of a
// value for the named algorithm. Hex digits may be upper or lower case.
func CheckDigestHex(algo, digest string) error {
	want, ok := DigestHexLen[algo]
	if !ok {
		return fmt.Errorf("unknown digest algorithm %q", algo)
	}
	if len(digest) != want {
		return fmt.Errorf("%s digest must be %d hex characters, not %d", algo, want, len(digest))
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return fmt.Errorf("invalid %s digest: %w", algo, err)
	}
	return nil
}
