package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// VerificationTokenTTL is the fixed lifetime of an email-verification token
const VerificationTokenTTL = 24 * time.Hour

// TokenManager issues and validates the two token families: sessions and
// email verification. Each family is signed with its own secret.
type TokenManager struct {
	sessionSecret      []byte
	verificationSecret []byte
	issuer             string
	audience           string
	now                func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secrets models.TokenSecrets, issuer, audience string) *TokenManager {
	return &TokenManager{
		sessionSecret:      []byte(secrets.SessionSecret),
		verificationSecret: []byte(secrets.VerificationSecret),
		issuer:             issuer,
		audience:           audience,
		now:                time.Now,
	}
}

// SetClock replaces the time source used for issuing and validating tokens
func (tm *TokenManager) SetClock(now func() time.Time) {
	tm.now = now
}

// Now returns the manager's current time
func (tm *TokenManager) Now() time.Time {
	return tm.now()
}

// IssueSessionToken signs a session JWT for userID. External-identity sessions
// get a fresh sessionId unless the caller supplies one.
func (tm *TokenManager) IssueSessionToken(userID string, ttl time.Duration, extra models.SessionExtras) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("issue session token: empty user id")
	}

	if extra.AuthProvider != "" && extra.SessionID == "" {
		extra.SessionID = uuid.New().String()
	}

	now := tm.now()
	claims := &models.SessionClaims{
		UserID:       userID,
		AuthProvider: extra.AuthProvider,
		ExternalID:   extra.ExternalID,
		SessionID:    extra.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.sessionSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// VerifySessionToken validates a session JWT. The returned error is one of
// models.ErrTokenMalformed, models.ErrTokenExpired or models.ErrTokenSignatureInvalid.
func (tm *TokenManager) VerifySessionToken(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithAudience(tm.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return tm.sessionSecret, nil
	})
	if err != nil {
		return nil, classifySessionError(err)
	}

	if claims.UserID == "" {
		return nil, models.ErrTokenMalformed
	}

	return claims, nil
}

func classifySessionError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return models.ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience):
		return models.ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return models.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return models.ErrTokenMalformed
	default:
		return models.ErrTokenSignatureInvalid
	}
}

// IssueVerificationToken signs a 24h email-verification JWT. The returned
// expiry equals the token's exp claim so the stored copy agrees with it.
func (tm *TokenManager) IssueVerificationToken(email string) (string, time.Time, error) {
	now := tm.now()
	expiresAt := jwt.NewNumericDate(now.Add(VerificationTokenTTL))

	claims := &models.VerificationClaims{
		Email:   email,
		Purpose: models.PurposeEmailVerification,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expiresAt,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.verificationSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign verification token: %w", err)
	}
	return token, expiresAt.Time, nil
}

// VerifyVerificationToken validates an email-verification JWT. An expired
// token returns its claims together with models.ErrTokenExpired; every other
// failure is models.ErrTokenInvalid.
func (tm *TokenManager) VerifyVerificationToken(tokenString string) (*models.VerificationClaims, error) {
	claims := &models.VerificationClaims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return tm.verificationSecret, nil
	})

	if err != nil {
		if isOnlyExpired(err) && claims.Purpose == models.PurposeEmailVerification && claims.Email != "" {
			return claims, models.ErrTokenExpired
		}
		return nil, models.ErrTokenInvalid
	}

	if claims.Purpose != models.PurposeEmailVerification || claims.Email == "" {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}

// isOnlyExpired reports whether expiry is the sole reason a signed token was
// rejected. The signature has already been checked when claim validation runs.
func isOnlyExpired(err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return false
	}
	for _, other := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenInvalidIssuer,
		jwt.ErrTokenNotValidYet,
	} {
		if errors.Is(err, other) {
			return false
		}
	}
	return true
}
