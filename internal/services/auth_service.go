package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/models"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
)

// EmailWarning is surfaced when a verification email could not be dispatched
const EmailWarning = "Verification email could not be sent. Request a new link to try again."

// SessionSettings holds session lifetimes
type SessionSettings struct {
	SessionTTL    time.Duration
	RememberMeTTL time.Duration
}

// AuthService handles local registration, login and password changes
type AuthService struct {
	repo        AccountRepository
	tm          *auth.TokenManager
	email       EmailSender
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	sessions    SessionSettings
}

// NewAuthService creates a new AuthService
func NewAuthService(repo AccountRepository, tm *auth.TokenManager, email EmailSender, logger *slog.Logger, auditLogger *pkglogger.AuditLogger, sessions SessionSettings) *AuthService {
	return &AuthService{
		repo:        repo,
		tm:          tm,
		email:       email,
		logger:      logger,
		auditLogger: auditLogger,
		sessions:    sessions,
	}
}

// RegisterInput is the local sign-up form
type RegisterInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// RegisterResult is the outcome of a successful registration
type RegisterResult struct {
	Account              *models.Account
	RequiresVerification bool
	Warning              string
}

// Register creates an unverified local account and sends its verification link
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		s.logger.Info("registration rejected: email in use", slog.String("email", pkglogger.SanitizedEmail(in.Email)))
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, internalError("lookup email", err)
	}

	hash, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	token, expiresAt, err := s.tm.IssueVerificationToken(in.Email)
	if err != nil {
		return nil, internalError("issue verification token", err)
	}

	writeCtx, cancel := detached(ctx, StoreWriteTimeout)
	defer cancel()

	account, err := s.repo.Create(writeCtx, &models.Account{
		Email:                 in.Email,
		PasswordHash:          hash,
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		AuthProvider:          models.AuthProviderLocal,
		VerificationToken:     &token,
		VerificationExpiresAt: &expiresAt,
		IsActive:              true,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, internalError("create account", err)
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventRegister,
		UserID:    account.ID,
		Provider:  models.AuthProviderLocal,
		Success:   true,
	})

	result := &RegisterResult{Account: account, RequiresVerification: true}
	if err := sendVerification(ctx, s.email, account, token, s.logger); err != nil {
		result.Warning = EmailWarning
	}
	return result, nil
}

func validateRegistration(in RegisterInput) error {
	var fields []models.FieldError
	required := func(field, value string) {
		if value == "" {
			fields = append(fields, models.FieldError{Field: field, Reason: "is required"})
		}
	}
	required("firstName", in.FirstName)
	required("lastName", in.LastName)
	required("email", in.Email)
	required("password", in.Password)
	required("confirmPassword", in.ConfirmPassword)

	if len(in.FirstName) > models.MaxNameLength {
		fields = append(fields, models.FieldError{Field: "firstName", Reason: "is too long"})
	}
	if len(in.LastName) > models.MaxNameLength {
		fields = append(fields, models.FieldError{Field: "lastName", Reason: "is too long"})
	}

	if in.Password != "" {
		fields = append(fields, passwordFieldErrors("password", in.Password)...)
		if in.ConfirmPassword != "" && in.Password != in.ConfirmPassword {
			fields = append(fields, models.FieldError{Field: "confirmPassword", Reason: "does not match password"})
		}
	}

	if len(fields) > 0 {
		return &models.ValidationError{Fields: fields}
	}
	return nil
}

func passwordFieldErrors(field, password string) []models.FieldError {
	err := pkgauth.ValidatePassword(password)
	if err == nil {
		return nil
	}
	var perr *pkgauth.PasswordValidationError
	if !errors.As(err, &perr) {
		return []models.FieldError{{Field: field, Reason: err.Error()}}
	}
	fields := make([]models.FieldError, 0, len(perr.Reasons))
	for _, reason := range perr.Reasons {
		fields = append(fields, models.FieldError{Field: field, Reason: reason})
	}
	return fields
}

// sendVerification dispatches the email on a detached, bounded context and
// logs a failure instead of propagating it
func sendVerification(ctx context.Context, sender EmailSender, account *models.Account, token string, logger *slog.Logger) error {
	sendCtx, cancel := detached(ctx, EmailSendTimeout)
	defer cancel()

	if err := sender.SendVerificationEmail(sendCtx, account, token); err != nil {
		logger.Warn("verification email dispatch failed",
			slog.String("user_id", account.ID),
			slog.Any("error", err))
		return err
	}
	return nil
}

// Login authenticates a local account and issues a session token
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool) (*SessionResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		pkgauth.CompareDummy(password)
		return nil, models.ErrUnauthorized
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkgauth.CompareDummy(password)
			s.loginFailed("", "invalid_credentials")
			return nil, models.ErrUnauthorized
		}
		return nil, internalError("lookup account", err)
	}

	if !account.HasPassword() {
		pkgauth.CompareDummy(password)
		s.loginFailed(account.ID, "password_login_disabled")
		return nil, models.ErrUnauthorized
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		s.loginFailed(account.ID, "invalid_credentials")
		return nil, models.ErrUnauthorized
	}

	if !account.IsVerified {
		s.loginFailed(account.ID, "email_not_verified")
		return nil, models.ErrEmailNotVerified
	}

	if !account.IsActive {
		s.loginFailed(account.ID, "account_inactive")
		return nil, models.ErrAccountInactive
	}

	writeCtx, cancel := detached(ctx, StoreWriteTimeout)
	defer cancel()

	updated, err := s.repo.UpdateLastLogin(writeCtx, account.ID, s.tm.Now().UTC())
	if err != nil {
		return nil, internalError("update last login", err)
	}

	ttl := s.sessions.SessionTTL
	if rememberMe {
		ttl = s.sessions.RememberMeTTL
	}

	token, err := s.tm.IssueSessionToken(updated.ID, ttl, models.SessionExtras{})
	if err != nil {
		return nil, internalError("issue session token", err)
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventLogin,
		UserID:    updated.ID,
		Provider:  models.AuthProviderLocal,
		Success:   true,
		Metadata:  map[string]string{"remember_me": strconv.FormatBool(rememberMe)},
	})

	return &SessionResult{Token: token, TTL: ttl, Account: updated, NextStep: updated.NextStep()}, nil
}

func (s *AuthService) loginFailed(userID, reason string) {
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     pkglogger.EventLogin,
		UserID:        userID,
		Provider:      models.AuthProviderLocal,
		Success:       false,
		FailureReason: reason,
	})
}

// ChangePassword replaces the password after re-checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, accountID, current, newPassword, confirm string) error {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return internalError("load account", err)
	}

	if !account.HasPassword() {
		return models.ErrPasswordLoginDisabled
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, current); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventPasswordChanged,
			UserID:        account.ID,
			Success:       false,
			FailureReason: "current_password_mismatch",
		})
		return models.NewValidationError("currentPassword", "is incorrect")
	}

	fields := passwordFieldErrors("newPassword", newPassword)
	if newPassword != confirm {
		fields = append(fields, models.FieldError{Field: "confirmPassword", Reason: "does not match new password"})
	}
	if newPassword == current {
		fields = append(fields, models.FieldError{Field: "newPassword", Reason: "must differ from the current password"})
	}
	if len(fields) > 0 {
		return &models.ValidationError{Fields: fields}
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return internalError("hash password", err)
	}

	writeCtx, cancel := detached(ctx, StoreWriteTimeout)
	defer cancel()

	if err := s.repo.UpdatePassword(writeCtx, account.ID, hash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrPasswordLoginDisabled
		}
		return internalError("update password", err)
	}

	s.auditLogger.LogAccountAction(pkglogger.EventPasswordChanged, account.ID, nil)
	return nil
}
