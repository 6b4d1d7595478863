package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	CSRFTokenBytes = 32 // hex encoded to 64 characters
	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt ignores input past 72 bytes
)

// PasswordSymbols is the accepted set of special characters
const PasswordSymbols = "@$!%*?&#^()-_=+[]{};:,.<>/\\|~`'\""

// Password policy failure reasons
const (
	ReasonTooShort  = "must be at least 8 characters"
	ReasonTooLong   = "must be at most 72 characters"
	ReasonNoLower   = "must contain at least one lowercase letter"
	ReasonNoUpper   = "must contain at least one uppercase letter"
	ReasonNoDigit   = "must contain at least one digit"
	ReasonNoSymbol  = "must contain at least one special character (" + PasswordSymbols + ")"
	ReasonTooCommon = "is too common, please choose a more unique password"
)

// PasswordValidationError lists every policy rule the password broke
type PasswordValidationError struct {
	Reasons []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Reasons) == 0 {
		return "password validation failed"
	}
	return "password " + strings.Join(e.Reasons, ", ")
}

// Common weak passwords to reject
var commonPasswords = map[string]bool{
	"password":     true,
	"12345678":     true,
	"qwerty":       true,
	"abc123":       true,
	"password123":  true,
	"password123!": true,
	"password1!":   true,
	"123456":       true,
	"admin":        true,
	"letmein":      true,
	"welcome":      true,
	"welcome1!":    true,
	"passw0rd":     true,
	"passw0rd!":    true,
	"trustno1":     true,
}

// dummyHash is compared against when an account does not exist so that
// unknown emails take as long as wrong passwords
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gatehouse-timing-equalizer"), BcryptCost)

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// CompareDummy burns the same bcrypt work as ComparePassword and always fails
func CompareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// GenerateCSRFToken returns 32 random bytes as 64 lowercase hex characters
func GenerateCSRFToken() (string, error) {
	b := make([]byte, CSRFTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidatePassword enforces the password policy
func ValidatePassword(password string) error {
	reasons := make([]string, 0)

	if len(password) < MinPasswordLen {
		reasons = append(reasons, ReasonTooShort)
	}
	if len(password) > MaxPasswordLen {
		reasons = append(reasons, ReasonTooLong)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasLower {
		reasons = append(reasons, ReasonNoLower)
	}
	if !hasUpper {
		reasons = append(reasons, ReasonNoUpper)
	}
	if !hasDigit {
		reasons = append(reasons, ReasonNoDigit)
	}
	if !hasSymbol {
		reasons = append(reasons, ReasonNoSymbol)
	}

	if commonPasswords[strings.ToLower(password)] {
		reasons = append(reasons, ReasonTooCommon)
	}

	if len(reasons) > 0 {
		return &PasswordValidationError{Reasons: reasons}
	}

	return nil
}
