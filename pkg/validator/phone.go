package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidPhone indicates the number is not a Moroccan mobile or landline number
	ErrInvalidPhone = errors.New("phone number must be +212XXXXXXXXX or 0XXXXXXXXX (5, 6 or 7 after the prefix)")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

// moroccanPhoneRegex accepts +212 followed by 9 digits or a 10 digit national number
var moroccanPhoneRegex = regexp.MustCompile(`^\+212[5-7]\d{8}$|^0[5-7]\d{8}$`)

// PhoneValidator handles phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a Moroccan phone number.
// Accepts 0612345678, +212612345678, 06 12 34 56 78 or 06-12-34-56-78.
// Returns the national form (0XXXXXXXXX).
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)
	if !moroccanPhoneRegex.MatchString(sanitized) {
		return "", ErrInvalidPhone
	}

	if strings.HasPrefix(sanitized, "+212") {
		sanitized = "0" + sanitized[4:]
	}
	return sanitized, nil
}

// Sanitize removes separators, keeping a leading +
func (v *PhoneValidator) Sanitize(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(strings.TrimSpace(phone))
}

// Format formats a phone number for display: 06 12 34 56 78
func (v *PhoneValidator) Format(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s %s %s %s %s",
		sanitized[0:2], sanitized[2:4], sanitized[4:6], sanitized[6:8], sanitized[8:10]), nil
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
