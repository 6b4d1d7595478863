package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/models"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
)

// VerificationService drives the unverified to verified transition
type VerificationService struct {
	repo        AccountRepository
	tm          *auth.TokenManager
	email       EmailSender
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	sessions    SessionSettings
}

func NewVerificationService(repo AccountRepository, tm *auth.TokenManager, email EmailSender, logger *slog.Logger, auditLogger *pkglogger.AuditLogger, sessions SessionSettings) *VerificationService {
	return &VerificationService{
		repo:        repo,
		tm:          tm,
		email:       email,
		logger:      logger,
		auditLogger: auditLogger,
		sessions:    sessions,
	}
}

// VerifyResult is the outcome of presenting a verification token. Exactly one
// of AlreadyVerified and Session is set.
type VerifyResult struct {
	AlreadyVerified bool
	Account         *models.Account
	Session         *SessionResult
}

// VerifyEmail consumes a verification token. Presenting a token for an
// account that is already verified is reported through AlreadyVerified and
// changes nothing.
func (s *VerificationService) VerifyEmail(ctx context.Context, token string) (*VerifyResult, error) {
	if token == "" {
		return nil, models.ErrTokenInvalid
	}

	claims, err := s.tm.VerifyVerificationToken(token)
	tokenExpired := errors.Is(err, models.ErrTokenExpired)
	if err != nil && !tokenExpired {
		s.verifyFailed("", "token_invalid")
		return nil, models.ErrTokenInvalid
	}

	account, err := s.repo.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.verifyFailed("", "account_not_found")
			return nil, models.ErrTokenInvalid
		}
		return nil, internalError("lookup account", err)
	}

	if account.IsVerified {
		return &VerifyResult{AlreadyVerified: true, Account: account}, nil
	}

	if account.VerificationToken == nil || *account.VerificationToken != token {
		s.verifyFailed(account.ID, "token_superseded")
		return nil, models.ErrTokenInvalid
	}

	if tokenExpired || account.VerificationExpired(s.tm.Now()) {
		s.verifyFailed(account.ID, "token_expired")
		return nil, models.ErrTokenExpired
	}

	writeCtx, cancel := detached(ctx, StoreWriteTimeout)
	defer cancel()

	verified, err := s.repo.MarkVerified(writeCtx, account.ID, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.verifyFailed(account.ID, "lost_race")
			return nil, models.ErrTokenInvalid
		}
		return nil, internalError("mark verified", err)
	}

	session, err := s.tm.IssueSessionToken(verified.ID, s.sessions.SessionTTL, models.SessionExtras{})
	if err != nil {
		return nil, internalError("issue session token", err)
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventEmailVerified,
		UserID:    verified.ID,
		Provider:  models.AuthProviderLocal,
		Success:   true,
	})

	return &VerifyResult{
		Account: verified,
		Session: &SessionResult{
			Token:    session,
			TTL:      s.sessions.SessionTTL,
			Account:  verified,
			NextStep: verified.NextStep(),
		},
	}, nil
}

func (s *VerificationService) verifyFailed(userID, reason string) {
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     pkglogger.EventEmailVerified,
		UserID:        userID,
		Success:       false,
		FailureReason: reason,
	})
}

// ResendVerification replaces any outstanding token with a fresh one, which
// invalidates the previous link. It returns a warning when the email could
// not be dispatched.
func (s *VerificationService) ResendVerification(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", models.NewValidationError("email", "is required")
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotFound
		}
		return "", internalError("lookup account", err)
	}

	if account.IsVerified {
		return "", models.ErrAlreadyVerified
	}

	token, expiresAt, err := s.tm.IssueVerificationToken(account.Email)
	if err != nil {
		return "", internalError("issue verification token", err)
	}

	writeCtx, cancel := detached(ctx, StoreWriteTimeout)
	defer cancel()

	updated, err := s.repo.SetVerificationToken(writeCtx, account.ID, token, expiresAt)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrAlreadyVerified
		}
		return "", internalError("store verification token", err)
	}

	s.auditLogger.LogAccountAction(pkglogger.EventVerificationResent, updated.ID, nil)

	if err := sendVerification(ctx, s.email, updated, token, s.logger); err != nil {
		return EmailWarning, nil
	}
	return "", nil
}
