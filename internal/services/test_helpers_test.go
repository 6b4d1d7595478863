package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/auth/google"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
	"github.com/google/uuid"
)

var testSessions = SessionSettings{SessionTTL: 7 * 24 * time.Hour, RememberMeTTL: 30 * 24 * time.Hour}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(discardLogger())
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestTokenManager() (*auth.TokenManager, *testClock) {
	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tm := auth.NewTokenManager(models.TokenSecrets{
		SessionSecret:      "session-secret-that-is-at-least-32-bytes-long",
		VerificationSecret: "verification-secret-that-is-at-least-32-bytes",
	}, "gatehouse", "gatehouse-web")
	tm.SetClock(clock.Now)
	return tm, clock
}

// MockEmailSender records verification emails
type MockEmailSender struct {
	SendFunc func(ctx context.Context, account *models.Account, token string) error

	mu     sync.Mutex
	Tokens []string
}

func (m *MockEmailSender) SendVerificationEmail(ctx context.Context, account *models.Account, token string) error {
	m.mu.Lock()
	m.Tokens = append(m.Tokens, token)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, account, token)
	}
	return nil
}

func (m *MockEmailSender) LastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Tokens) == 0 {
		return ""
	}
	return m.Tokens[len(m.Tokens)-1]
}

// MockGoogleVerifier implements GoogleTokenVerifier for testing
type MockGoogleVerifier struct {
	VerifyFunc func(ctx context.Context, req *google.Request) (*google.Claims, error)
}

func (m *MockGoogleVerifier) Verify(ctx context.Context, req *google.Request) (*google.Claims, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, req)
	}
	return nil, &google.RejectionError{Stage: 1, Name: "shape", Kind: models.ErrValidation, Message: "not configured"}
}

// MockAccountRepository implements AccountRepository with overridable
// functions. Unset functions fall through to an in-memory store that keeps
// the same conditional-update rules as the Postgres repository.
type MockAccountRepository struct {
	GetByIDFunc                    func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc                 func(ctx context.Context, email string) (*models.Account, error)
	FindByEmailOrGoogleSubjectFunc func(ctx context.Context, email, subjectID string) (*models.Account, error)
	CreateFunc                     func(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateLastLoginFunc            func(ctx context.Context, id string, at time.Time) (*models.Account, error)
	SetVerificationTokenFunc       func(ctx context.Context, id, token string, expiresAt time.Time) (*models.Account, error)
	MarkVerifiedFunc               func(ctx context.Context, id, token string) (*models.Account, error)
	CompleteProfileFunc            func(ctx context.Context, id, phone, bio string) (*models.Account, error)
	UpdateProfileFunc              func(ctx context.Context, id string, update repositories.ProfileUpdate) (*models.Account, error)
	UpdatePasswordFunc             func(ctx context.Context, id, passwordHash string) error
	LinkGoogleIdentityFunc         func(ctx context.Context, id string, link repositories.GoogleLink) (*models.Account, error)

	mu       sync.Mutex
	accounts map[string]*models.Account
	writes   int
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[string]*models.Account)}
}

// Writes counts successful mutations made through the in-memory store
func (m *MockAccountRepository) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Seed stores a copy of account and returns its id
func (m *MockAccountRepository) Seed(account *models.Account) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	cp := *account
	m.accounts[cp.ID] = &cp
	return cp.ID
}

// Snapshot returns a copy of the stored account
func (m *MockAccountRepository) Snapshot(id string) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

func (m *MockAccountRepository) mutate(id string, fn func(a *models.Account) bool) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || !fn(a) {
		return nil, models.ErrNotFound
	}
	m.writes++
	cp := *a
	return &cp, nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	if a := m.Snapshot(id); a != nil {
		return a, nil
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) FindByEmailOrGoogleSubject(ctx context.Context, email, subjectID string) (*models.Account, error) {
	if m.FindByEmailOrGoogleSubjectFunc != nil {
		return m.FindByEmailOrGoogleSubjectFunc(ctx, email, subjectID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var byEmail *models.Account
	for _, a := range m.accounts {
		if a.GoogleSubjectID != nil && *a.GoogleSubjectID == subjectID {
			cp := *a
			return &cp, nil
		}
		if strings.EqualFold(a.Email, email) {
			byEmail = a
		}
	}
	if byEmail != nil {
		cp := *byEmail
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return nil, models.ErrConflict
		}
	}
	cp := *account
	cp.ID = uuid.New().String()
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	m.accounts[cp.ID] = &cp
	m.writes++
	out := cp
	return &out, nil
}

func (m *MockAccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) (*models.Account, error) {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, id, at)
	}
	return m.mutate(id, func(a *models.Account) bool {
		a.LastLoginAt = &at
		return true
	})
}

func (m *MockAccountRepository) SetVerificationToken(ctx context.Context, id, token string, expiresAt time.Time) (*models.Account, error) {
	if m.SetVerificationTokenFunc != nil {
		return m.SetVerificationTokenFunc(ctx, id, token, expiresAt)
	}
	return m.mutate(id, func(a *models.Account) bool {
		if a.IsVerified {
			return false
		}
		a.VerificationToken = &token
		a.VerificationExpiresAt = &expiresAt
		return true
	})
}

func (m *MockAccountRepository) MarkVerified(ctx context.Context, id, token string) (*models.Account, error) {
	if m.MarkVerifiedFunc != nil {
		return m.MarkVerifiedFunc(ctx, id, token)
	}
	return m.mutate(id, func(a *models.Account) bool {
		if a.IsVerified || a.VerificationToken == nil || *a.VerificationToken != token {
			return false
		}
		a.IsVerified = true
		a.VerificationToken = nil
		a.VerificationExpiresAt = nil
		return true
	})
}

func (m *MockAccountRepository) CompleteProfile(ctx context.Context, id, phone, bio string) (*models.Account, error) {
	if m.CompleteProfileFunc != nil {
		return m.CompleteProfileFunc(ctx, id, phone, bio)
	}
	return m.mutate(id, func(a *models.Account) bool {
		if !a.IsVerified || a.ProfileCompleted {
			return false
		}
		a.Phone, a.Bio, a.ProfileCompleted = phone, bio, true
		return true
	})
}

func (m *MockAccountRepository) UpdateProfile(ctx context.Context, id string, update repositories.ProfileUpdate) (*models.Account, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, update)
	}
	return m.mutate(id, func(a *models.Account) bool {
		a.FirstName, a.LastName, a.Phone, a.Bio = update.FirstName, update.LastName, update.Phone, update.Bio
		return true
	})
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	_, err := m.mutate(id, func(a *models.Account) bool {
		if a.PasswordHash == "" {
			return false
		}
		a.PasswordHash = passwordHash
		return true
	})
	return err
}

func (m *MockAccountRepository) LinkGoogleIdentity(ctx context.Context, id string, link repositories.GoogleLink) (*models.Account, error) {
	if m.LinkGoogleIdentityFunc != nil {
		return m.LinkGoogleIdentityFunc(ctx, id, link)
	}
	return m.mutate(id, func(a *models.Account) bool {
		if a.GoogleSubjectID != nil && *a.GoogleSubjectID != link.SubjectID {
			return false
		}
		subject := link.SubjectID
		a.GoogleSubjectID = &subject
		if link.AvatarURL != "" {
			a.AvatarURL = link.AvatarURL
		}
		if link.Locale != "" {
			a.Locale = link.Locale
		}
		if link.HostedDomain != "" {
			a.HostedDomain = link.HostedDomain
		}
		loginAt := link.LoginAt
		a.LastLoginAt = &loginAt
		a.IsVerified = true
		a.VerificationToken = nil
		a.VerificationExpiresAt = nil
		return true
	})
}

var errStoreDown = errors.New("connection refused")

func mustNotCall(t *testing.T, name string) {
	t.Helper()
	t.Fatalf("%s must not be called", name)
}
