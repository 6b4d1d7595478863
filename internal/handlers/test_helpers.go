package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/auth/google"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAccountContext injects an authenticated account the way SessionMiddleware does
func WithAccountContext(req *http.Request, account *models.Account) *http.Request {
	ctx := context.WithValue(req.Context(), auth.AccountContextKey, account)
	return req.WithContext(ctx)
}

// NewTestErrorWriter returns an ErrorWriter that discards its logs
func NewTestErrorWriter(development bool) *ErrorWriter {
	return NewErrorWriter(slog.New(slog.NewTextHandler(io.Discard, nil)), development)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error envelope and returns it
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.False(t, resp.Success)
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface and PasswordChanger for testing
type MockAuthService struct {
	RegisterFunc       func(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	LoginFunc          func(ctx context.Context, email, password string, rememberMe bool) (*services.SessionResult, error)
	ChangePasswordFunc func(ctx context.Context, accountID, current, newPassword, confirm string) error
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, in)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, rememberMe bool) (*services.SessionResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password, rememberMe)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, accountID, current, newPassword, confirm string) error {
	if m.ChangePasswordFunc == nil {
		return nil
	}
	return m.ChangePasswordFunc(ctx, accountID, current, newPassword, confirm)
}

// MockVerificationService implements VerificationServiceInterface for testing
type MockVerificationService struct {
	VerifyEmailFunc        func(ctx context.Context, token string) (*services.VerifyResult, error)
	ResendVerificationFunc func(ctx context.Context, email string) (string, error)
}

func (m *MockVerificationService) VerifyEmail(ctx context.Context, token string) (*services.VerifyResult, error) {
	if m.VerifyEmailFunc == nil {
		return nil, models.ErrTokenInvalid
	}
	return m.VerifyEmailFunc(ctx, token)
}

func (m *MockVerificationService) ResendVerification(ctx context.Context, email string) (string, error) {
	if m.ResendVerificationFunc == nil {
		return "", nil
	}
	return m.ResendVerificationFunc(ctx, email)
}

// MockGoogleService implements GoogleSignInService for testing
type MockGoogleService struct {
	SignInFunc func(ctx context.Context, req *google.Request) (*services.SessionResult, error)
}

func (m *MockGoogleService) SignIn(ctx context.Context, req *google.Request) (*services.SessionResult, error) {
	if m.SignInFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.SignInFunc(ctx, req)
}

// MockProfileService implements ProfileServiceInterface for testing
type MockProfileService struct {
	CompleteProfileFunc func(ctx context.Context, accountID, phone, bio string) (*models.Account, error)
	UpdateProfileFunc   func(ctx context.Context, accountID string, in services.ProfileInput) (*models.Account, error)
}

func (m *MockProfileService) CompleteProfile(ctx context.Context, accountID, phone, bio string) (*models.Account, error) {
	if m.CompleteProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.CompleteProfileFunc(ctx, accountID, phone, bio)
}

func (m *MockProfileService) UpdateProfile(ctx context.Context, accountID string, in services.ProfileInput) (*models.Account, error) {
	if m.UpdateProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateProfileFunc(ctx, accountID, in)
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
