package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/auth/google"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
)

// GoogleTokenVerifier runs the request and token checks of Google sign-in
type GoogleTokenVerifier interface {
	Verify(ctx context.Context, req *google.Request) (*google.Claims, error)
}

// GoogleService resolves a verified Google identity to an account and signs it in
type GoogleService struct {
	verifier    GoogleTokenVerifier
	repo        AccountRepository
	tm          *auth.TokenManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	sessions    SessionSettings
}

func NewGoogleService(verifier GoogleTokenVerifier, repo AccountRepository, tm *auth.TokenManager, logger *slog.Logger, auditLogger *pkglogger.AuditLogger, sessions SessionSettings) *GoogleService {
	return &GoogleService{
		verifier:    verifier,
		repo:        repo,
		tm:          tm,
		logger:      logger,
		auditLogger: auditLogger,
		sessions:    sessions,
	}
}

// SignIn verifies the request, links or creates the account, and issues a
// session carrying the provider identity. Verifier rejections are returned
// unchanged as *google.RejectionError.
func (s *GoogleService) SignIn(ctx context.Context, req *google.Request) (*SessionResult, error) {
	claims, err := s.verifier.Verify(ctx, req)
	if err != nil {
		var rejection *google.RejectionError
		if errors.As(err, &rejection) {
			s.signInFailed("", rejection.Name)
		}
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))

	account, err := s.resolveAccount(ctx, email, claims)
	if err != nil {
		return nil, err
	}

	token, err := s.tm.IssueSessionToken(account.ID, s.sessions.SessionTTL, models.SessionExtras{
		AuthProvider: models.AuthProviderGoogle,
		ExternalID:   claims.Subject,
	})
	if err != nil {
		return nil, internalError("issue session token", err)
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventGoogleSignIn,
		UserID:    account.ID,
		Provider:  models.AuthProviderGoogle,
		Success:   true,
	})

	return &SessionResult{
		Token:    token,
		TTL:      s.sessions.SessionTTL,
		Account:  account,
		NextStep: account.NextStep(),
	}, nil
}

func (s *GoogleService) resolveAccount(ctx context.Context, email string, claims *google.Claims) (*models.Account, error) {
	existing, err := s.repo.FindByEmailOrGoogleSubject(ctx, email, claims.Subject)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, internalError("lookup account", err)
	}

	writeCtx, cancel := detached(ctx, StoreWriteTimeout)
	defer cancel()

	now := s.tm.Now().UTC()

	if existing == nil {
		subject := claims.Subject
		created, err := s.repo.Create(writeCtx, &models.Account{
			Email:           email,
			FirstName:       claims.GivenName,
			LastName:        claims.FamilyName,
			AuthProvider:    models.AuthProviderGoogle,
			GoogleSubjectID: &subject,
			IsVerified:      true,
			AvatarURL:       claims.Picture,
			Locale:          claims.Locale,
			HostedDomain:    claims.HostedDomain,
			IsActive:        true,
			LastLoginAt:     &now,
		})
		if err != nil {
			if errors.Is(err, models.ErrConflict) {
				return nil, models.ErrConflict
			}
			return nil, internalError("create google account", err)
		}
		s.logger.Info("google account created", slog.String("user_id", created.ID))
		return created, nil
	}

	if existing.Email != "" && !strings.EqualFold(existing.Email, email) {
		s.signInFailed(existing.ID, "email_mismatch")
		return nil, models.ErrRequiresManualVerification
	}
	if existing.GoogleSubjectID != nil && *existing.GoogleSubjectID != claims.Subject {
		s.signInFailed(existing.ID, "subject_mismatch")
		return nil, models.ErrRequiresManualVerification
	}
	if !existing.IsActive {
		s.signInFailed(existing.ID, "account_inactive")
		return nil, models.ErrAccountInactive
	}

	linked, err := s.repo.LinkGoogleIdentity(writeCtx, existing.ID, repositories.GoogleLink{
		SubjectID:    claims.Subject,
		AvatarURL:    claims.Picture,
		Locale:       claims.Locale,
		HostedDomain: claims.HostedDomain,
		LoginAt:      now,
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Another subject was linked since the lookup
			return nil, models.ErrRequiresManualVerification
		}
		return nil, internalError("link google identity", err)
	}

	if existing.GoogleSubjectID == nil {
		s.auditLogger.LogAccountAction(pkglogger.EventGoogleSignIn, linked.ID, map[string]string{"action": "linked"})
	}
	return linked, nil
}

func (s *GoogleService) signInFailed(userID, reason string) {
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     pkglogger.EventGoogleSignIn,
		UserID:        userID,
		Provider:      models.AuthProviderGoogle,
		Success:       false,
		FailureReason: reason,
	})
}
