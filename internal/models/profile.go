package models

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// PhonePattern is a permissive international phone format
var PhonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s\-().]{6,19}$`)

const (
	MaxBioLength  = 500
	MaxNameLength = 100
)

// ValidateProfileFields checks the fields profile completion depends on.
// It returns nil or a *ValidationError naming every bad field.
func ValidateProfileFields(phone, bio string) error {
	var fields []FieldError

	if !PhonePattern.MatchString(strings.TrimSpace(phone)) {
		fields = append(fields, FieldError{Field: "phone", Reason: "must be a valid phone number"})
	}

	bio = strings.TrimSpace(bio)
	switch n := utf8.RuneCountInString(bio); {
	case n == 0:
		fields = append(fields, FieldError{Field: "bio", Reason: "is required"})
	case n > MaxBioLength:
		fields = append(fields, FieldError{Field: "bio", Reason: "must be at most 500 characters"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
