package models

import (
	"time"
)

// Authentication providers
const (
	AuthProviderLocal    = "local"
	AuthProviderGoogle   = "google"
	AuthProviderFacebook = "facebook"
)

// Account is the persisted identity record
type Account struct {
	ID                    string
	Email                 string
	PasswordHash          string // empty unless AuthProvider == local
	FirstName             string
	LastName              string
	AuthProvider          string
	GoogleSubjectID       *string
	FacebookSubjectID     *string
	IsVerified            bool
	VerificationToken     *string
	VerificationExpiresAt *time.Time
	ProfileCompleted      bool
	Phone                 string
	Bio                   string
	AvatarURL             string
	Locale                string
	HostedDomain          string
	IsActive              bool
	LastLoginAt           *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasPassword reports whether the account can use password login
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// HasPendingVerification reports whether a verification token is outstanding
func (a *Account) HasPendingVerification() bool {
	return !a.IsVerified && a.VerificationToken != nil && a.VerificationExpiresAt != nil
}

// VerificationExpired reports whether the stored verification expiry is at or before now
func (a *Account) VerificationExpired(now time.Time) bool {
	if a.VerificationExpiresAt == nil {
		return true
	}
	return !now.Before(*a.VerificationExpiresAt)
}
