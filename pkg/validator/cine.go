package validator

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidCINE indicates a malformed national identity card number
var ErrInvalidCINE = errors.New("CINE must be 1 or 2 letters followed by 6 or 7 digits")

var cineRegex = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{6,7}$`)

// NormalizeCINE trims and upper-cases a CINE number
func NormalizeCINE(cine string) string {
	return strings.ToUpper(strings.TrimSpace(cine))
}

// ValidateCINE normalizes cine and checks its format
func ValidateCINE(cine string) (string, error) {
	normalized := NormalizeCINE(cine)
	if !cineRegex.MatchString(normalized) {
		return "", ErrInvalidCINE
	}
	return normalized, nil
}

// IsValidCINE reports whether cine is well formed after normalization
func IsValidCINE(cine string) bool {
	_, err := ValidateCINE(cine)
	return err == nil
}
