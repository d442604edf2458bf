package grammar

import (
	"fmt"
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"
)

// CheckLicense checks that s is a valid SPDX license expression and that
// every identifier in it appears on the SPDX license list.
func CheckLicense(s string) error {
	valid, invalid := spdxexp.ValidateLicenses([]string{s})
	if !valid {
		return fmt.Errorf("invalid SPDX license expression: %s", strings.Join(invalid, ", "))
	}
	return nil
}
