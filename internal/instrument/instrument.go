// Package instrument validates exchange company codes at the service
// boundary.
package instrument

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// codeRegex matches six-character exchange codes such as 005930 or 0126Z0.
var codeRegex = regexp.MustCompile(`^[0-9A-Z]{6}$`)

var ErrInvalidCode = errors.New("instrument: invalid company code")

// ParseCompanyCode trims and upper-cases code and checks its format.
func ParseCompanyCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !codeRegex.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q (expected 6 alphanumeric characters)", ErrInvalidCode, code)
	}
	return normalized, nil
}
