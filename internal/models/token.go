package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// PurposeEmailVerification marks verification tokens so they cannot stand in for sessions
const PurposeEmailVerification = "email_verification"

// TokenSecrets holds per-family signing secrets
type TokenSecrets struct {
	SessionSecret      string
	VerificationSecret string
}

// SessionClaims is the payload of a session JWT
type SessionClaims struct {
	UserID       string `json:"userId"`
	AuthProvider string `json:"authProvider,omitempty"`
	ExternalID   string `json:"externalId,omitempty"`
	SessionID    string `json:"sessionId,omitempty"`
	jwt.RegisteredClaims
}

// SessionExtras are the optional claims attached to external-identity sessions
type SessionExtras struct {
	AuthProvider string
	ExternalID   string
	SessionID    string
}

// VerificationClaims is the payload of an email-verification JWT
type VerificationClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}
