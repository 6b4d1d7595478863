package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
)

// ProfileService drives the verified to active transition and later edits
type ProfileService struct {
	repo        AccountRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewProfileService(repo AccountRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *ProfileService {
	return &ProfileService{repo: repo, logger: logger, auditLogger: auditLogger}
}

// ProfileInput is the editable part of an account
type ProfileInput struct {
	FirstName string
	LastName  string
	Phone     string
	Bio       string
}

// GetProfile returns the current state of an account
func (s *ProfileService) GetProfile(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, internalError("load account", err)
	}
	return account, nil
}

// CompleteProfile records phone and bio and moves a verified account to active
func (s *ProfileService) CompleteProfile(ctx context.Context, accountID, phone, bio string) (*models.Account, error) {
	phone = strings.TrimSpace(phone)
	bio = strings.TrimSpace(bio)

	if err := models.ValidateProfileFields(phone, bio); err != nil {
		return nil, err
	}

	account, err := s.GetProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := account.CanCompleteProfile(); err != nil {
		return nil, err
	}

	writeCtx, cancel := detached(ctx, StoreWriteTimeout)
	defer cancel()

	completed, err := s.repo.CompleteProfile(writeCtx, account.ID, phone, bio)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Lost a race with another completion
			return nil, models.ErrProfileAlreadyCompleted
		}
		return nil, internalError("complete profile", err)
	}

	s.auditLogger.LogAccountAction(pkglogger.EventProfileCompleted, completed.ID, nil)
	return completed, nil
}

// UpdateProfile edits names, phone and bio on an active account
func (s *ProfileService) UpdateProfile(ctx context.Context, accountID string, in ProfileInput) (*models.Account, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Bio = strings.TrimSpace(in.Bio)

	var fields []models.FieldError
	for _, f := range []struct{ name, value string }{{"firstName", in.FirstName}, {"lastName", in.LastName}} {
		switch {
		case f.value == "":
			fields = append(fields, models.FieldError{Field: f.name, Reason: "is required"})
		case len(f.value) > models.MaxNameLength:
			fields = append(fields, models.FieldError{Field: f.name, Reason: "is too long"})
		}
	}
	var verr *models.ValidationError
	if err := models.ValidateProfileFields(in.Phone, in.Bio); errors.As(err, &verr) {
		fields = append(fields, verr.Fields...)
	}
	if len(fields) > 0 {
		return nil, &models.ValidationError{Fields: fields}
	}

	writeCtx, cancel := detached(ctx, StoreWriteTimeout)
	defer cancel()

	updated, err := s.repo.UpdateProfile(writeCtx, accountID, repositories.ProfileUpdate{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Bio:       in.Bio,
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, internalError("update profile", err)
	}

	s.logger.Info("profile updated", slog.String("user_id", updated.ID))
	return updated, nil
}
