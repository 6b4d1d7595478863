package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAccountLoader struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.Account, error)
}

func (m *mockAccountLoader) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func activeAccount(id string) *models.Account {
	return &models.Account{
		ID:               id,
		Email:            "ada@example.com",
		AuthProvider:     models.AuthProviderLocal,
		IsVerified:       true,
		ProfileCompleted: true,
		Phone:            "+1 555 0100",
		Bio:              "hello",
		IsActive:         true,
	}
}

func runGate(t *testing.T, tm *TokenManager, loader AccountLoader, req *http.Request) (*httptest.ResponseRecorder, *models.Account) {
	t.Helper()
	var seen *models.Account
	handler := SessionMiddleware(tm, loader, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAccountFromContext(r)
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSessionMiddleware_AcceptsBearerToken(t *testing.T) {
	tm, _ := newTestTokenManager(t)
	token, err := tm.IssueSessionToken("user-1", time.Hour, models.SessionExtras{})
	require.NoError(t, err)

	loader := &mockAccountLoader{GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
		assert.Equal(t, "user-1", id)
		return activeAccount(id), nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec, account := runGate(t, tm, loader, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, account)
	assert.Equal(t, "user-1", account.ID)
}

func TestSessionMiddleware_FallsBackToSessionCookie(t *testing.T) {
	tm, _ := newTestTokenManager(t)
	token, err := tm.IssueSessionToken("user-1", time.Hour, models.SessionExtras{})
	require.NoError(t, err)

	loader := &mockAccountLoader{GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
		return activeAccount(id), nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})

	rec, account := runGate(t, tm, loader, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotNil(t, account)
}

func TestSessionMiddleware_FailureCodes(t *testing.T) {
	tm, clock := newTestTokenManager(t)

	valid, err := tm.IssueSessionToken("user-1", time.Hour, models.SessionExtras{})
	require.NoError(t, err)

	expiredTM := NewTokenManager(testSecrets, "gatehouse", "gatehouse-web")
	expiredTM.SetClock(func() time.Time { return clock.t.Add(-2 * time.Hour) })
	expired, err := expiredTM.IssueSessionToken("user-1", time.Hour, models.SessionExtras{})
	require.NoError(t, err)

	forger := NewTokenManager(models.TokenSecrets{SessionSecret: "another-secret-entirely-for-forgery-tests"}, "gatehouse", "gatehouse-web")
	forger.SetClock(clock.Now)
	forged, err := forger.IssueSessionToken("user-1", time.Hour, models.SessionExtras{})
	require.NoError(t, err)

	inactive := activeAccount("user-1")
	inactive.IsActive = false

	tests := []struct {
		name     string
		header   string
		account  *models.Account
		loadErr  error
		wantCode string
	}{
		{name: "missing", wantCode: CodeTokenMissing},
		{name: "wrong scheme", header: "Basic abc", wantCode: CodeTokenMalformed},
		{name: "malformed jwt", header: "Bearer not.a.jwt", wantCode: CodeTokenMalformed},
		{name: "expired", header: "Bearer " + expired, wantCode: CodeTokenExpired},
		{name: "forged", header: "Bearer " + forged, wantCode: CodeTokenSignatureInvalid},
		{name: "account gone", header: "Bearer " + valid, loadErr: models.ErrNotFound, wantCode: CodeAccountNotFound},
		{name: "account inactive", header: "Bearer " + valid, account: inactive, wantCode: CodeAccountInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			loader := &mockAccountLoader{GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
				called = true
				if tt.loadErr != nil {
					return nil, tt.loadErr
				}
				return tt.account, nil
			}}

			req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec, account := runGate(t, tm, loader, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, account)

			resp := decodeEnvelope(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error)

			if tt.account == nil && tt.loadErr == nil {
				assert.False(t, called, "account store must not be hit for token failures")
			}
		})
	}
}

func TestSessionMiddleware_StoreFailureIsInternal(t *testing.T) {
	tm, _ := newTestTokenManager(t)
	token, err := tm.IssueSessionToken("user-1", time.Hour, models.SessionExtras{})
	require.NoError(t, err)

	loader := &mockAccountLoader{GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
		return nil, errors.New("connection refused")
	}}

	req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec, _ := runGate(t, tm, loader, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestRequireCompletedProfile(t *testing.T) {
	incomplete := activeAccount("user-1")
	incomplete.ProfileCompleted = false

	tests := []struct {
		name       string
		account    *models.Account
		wantStatus int
	}{
		{"no account", nil, http.StatusUnauthorized},
		{"incomplete profile", incomplete, http.StatusForbidden},
		{"active", activeAccount("user-1"), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireCompletedProfile(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodPut, "/profile", nil)
			if tt.account != nil {
				req = req.WithContext(context.WithValue(req.Context(), AccountContextKey, tt.account))
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusForbidden {
				assert.Equal(t, CodeProfileIncomplete, decodeEnvelope(t, rec).Error)
			}
		})
	}
}

func TestSetSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok", time.Hour, SessionCookieConfig(true))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)
}
