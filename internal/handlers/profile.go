package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// ProfileServiceInterface defines the profile operations
type ProfileServiceInterface interface {
	CompleteProfile(ctx context.Context, accountID, phone, bio string) (*models.Account, error)
	UpdateProfile(ctx context.Context, accountID string, in services.ProfileInput) (*models.Account, error)
}

// PasswordChanger changes a local account's password
type PasswordChanger interface {
	ChangePassword(ctx context.Context, accountID, current, newPassword, confirm string) error
}

// ProfileHandler handles the authenticated /profile endpoints
type ProfileHandler struct {
	service   ProfileServiceInterface
	passwords PasswordChanger
	errs      *ErrorWriter
}

func NewProfileHandler(service ProfileServiceInterface, passwords PasswordChanger, errs *ErrorWriter) *ProfileHandler {
	return &ProfileHandler{service: service, passwords: passwords, errs: errs}
}

// CompleteProfileRequest represents the request body for profile completion
type CompleteProfileRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	Bio   string `json:"bio" validate:"required,max=500"`
}

// UpdateProfileRequest represents the request body for profile edits
type UpdateProfileRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"required,phone"`
	Bio       string `json:"bio" validate:"required,max=500"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// ProfileResponse carries the caller's account and routing hint
type ProfileResponse struct {
	Success  bool                      `json:"success"`
	User     *services.AccountResponse `json:"user"`
	NextStep string                    `json:"nextStep"`
}

func newProfileResponse(account *models.Account) ProfileResponse {
	return ProfileResponse{
		Success:  true,
		User:     services.NewAccountResponse(account),
		NextStep: account.NextStep(),
	}
}

// Me handles GET /profile/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, newProfileResponse(account))
}

// Complete handles POST /profile/complete
func (h *ProfileHandler) Complete(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CompleteProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if err := ValidateRequest(req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	updated, err := h.service.CompleteProfile(r.Context(), account.ID, req.Phone, req.Bio)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, newProfileResponse(updated))
}

// Update handles PUT /profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if err := ValidateRequest(req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), account.ID, services.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Bio:       req.Bio,
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, newProfileResponse(updated))
}

// ChangePassword handles PUT /profile/password
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if err := ValidateRequest(req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	if err := h.passwords.ChangePassword(r.Context(), account.ID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
