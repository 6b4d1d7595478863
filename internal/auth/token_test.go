package auth

import (
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecrets = models.TokenSecrets{
	SessionSecret:      "session-secret-that-is-at-least-32-bytes-long",
	VerificationSecret: "verification-secret-that-is-at-least-32-bytes",
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestTokenManager(t *testing.T) (*TokenManager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tm := NewTokenManager(testSecrets, "gatehouse", "gatehouse-web")
	tm.SetClock(clock.Now)
	return tm, clock
}

func TestSessionToken_RoundTrip(t *testing.T) {
	tm, _ := newTestTokenManager(t)

	token, err := tm.IssueSessionToken("user-1", 7*24*time.Hour, models.SessionExtras{})
	require.NoError(t, err)

	claims, err := tm.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "gatehouse", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.Empty(t, claims.SessionID)
}

func TestSessionToken_ExternalIdentityGetsSessionID(t *testing.T) {
	tm, _ := newTestTokenManager(t)

	first, err := tm.IssueSessionToken("user-1", time.Hour, models.SessionExtras{
		AuthProvider: models.AuthProviderGoogle,
		ExternalID:   "sub-1",
	})
	require.NoError(t, err)
	second, err := tm.IssueSessionToken("user-1", time.Hour, models.SessionExtras{
		AuthProvider: models.AuthProviderGoogle,
		ExternalID:   "sub-1",
	})
	require.NoError(t, err)

	c1, err := tm.VerifySessionToken(first)
	require.NoError(t, err)
	c2, err := tm.VerifySessionToken(second)
	require.NoError(t, err)

	assert.Equal(t, models.AuthProviderGoogle, c1.AuthProvider)
	assert.Equal(t, "sub-1", c1.ExternalID)
	assert.NotEmpty(t, c1.SessionID)
	assert.NotEqual(t, c1.SessionID, c2.SessionID)
}

func TestSessionToken_ExpiryBoundary(t *testing.T) {
	tm, clock := newTestTokenManager(t)

	token, err := tm.IssueSessionToken("user-1", time.Hour, models.SessionExtras{})
	require.NoError(t, err)

	start := clock.t
	clock.t = start.Add(time.Hour - time.Second)
	_, err = tm.VerifySessionToken(token)
	assert.NoError(t, err)

	clock.t = start.Add(time.Hour)
	_, err = tm.VerifySessionToken(token)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestSessionToken_Failures(t *testing.T) {
	tm, _ := newTestTokenManager(t)

	other := NewTokenManager(models.TokenSecrets{
		SessionSecret:      "a-completely-different-session-secret-value",
		VerificationSecret: testSecrets.VerificationSecret,
	}, "gatehouse", "gatehouse-web")
	other.SetClock(tm.Now)
	forged, err := other.IssueSessionToken("user-1", time.Hour, models.SessionExtras{})
	require.NoError(t, err)

	wrongAudience := NewTokenManager(testSecrets, "gatehouse", "someone-else")
	wrongAudience.SetClock(tm.Now)
	misdirected, err := wrongAudience.IssueSessionToken("user-1", time.Hour, models.SessionExtras{})
	require.NoError(t, err)

	verification, _, err := tm.IssueVerificationToken("a@example.com")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": "user-1",
		"iss":    "gatehouse",
		"aud":    "gatehouse-web",
		"exp":    tm.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"garbage", "not-a-jwt", models.ErrTokenMalformed},
		{"two segments", "abc.def", models.ErrTokenMalformed},
		{"wrong secret", forged, models.ErrTokenSignatureInvalid},
		{"wrong audience", misdirected, models.ErrTokenSignatureInvalid},
		{"verification token as session", verification, models.ErrTokenSignatureInvalid},
		{"alg none", noneAlg, models.ErrTokenSignatureInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.VerifySessionToken(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerificationToken_RoundTrip(t *testing.T) {
	tm, clock := newTestTokenManager(t)

	token, expiresAt, err := tm.IssueVerificationToken("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(24*time.Hour), expiresAt)

	claims, err := tm.VerifyVerificationToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, models.PurposeEmailVerification, claims.Purpose)
}

func TestVerificationToken_ExpiryBoundary(t *testing.T) {
	tm, clock := newTestTokenManager(t)

	token, expiresAt, err := tm.IssueVerificationToken("ada@example.com")
	require.NoError(t, err)

	clock.t = expiresAt.Add(-time.Second)
	_, err = tm.VerifyVerificationToken(token)
	assert.NoError(t, err)

	clock.t = expiresAt
	claims, err := tm.VerifyVerificationToken(token)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
	require.NotNil(t, claims)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestVerificationToken_SuccessiveTokensDiffer(t *testing.T) {
	tm, _ := newTestTokenManager(t)

	first, _, err := tm.IssueVerificationToken("ada@example.com")
	require.NoError(t, err)
	second, _, err := tm.IssueVerificationToken("ada@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerificationToken_RejectsOtherFamilies(t *testing.T) {
	tm, _ := newTestTokenManager(t)

	session, err := tm.IssueSessionToken("user-1", time.Hour, models.SessionExtras{})
	require.NoError(t, err)

	wrongPurpose, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.VerificationClaims{
		Email:   "ada@example.com",
		Purpose: "password_reset",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gatehouse",
			ExpiresAt: jwt.NewNumericDate(tm.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecrets.VerificationSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"session token": session,
		"wrong purpose": wrongPurpose,
		"garbage":       "x.y.z",
	} {
		t.Run(name, func(t *testing.T) {
			claims, err := tm.VerifyVerificationToken(token)
			assert.ErrorIs(t, err, models.ErrTokenInvalid)
			assert.Nil(t, claims)
		})
	}
}
