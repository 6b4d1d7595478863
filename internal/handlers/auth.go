package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// CSRFTokenTTL is the lifetime of the csrf_token cookie
const CSRFTokenTTL = time.Hour

// AuthServiceInterface defines the local sign-up and sign-in operations
type AuthServiceInterface interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	Login(ctx context.Context, email, password string, rememberMe bool) (*services.SessionResult, error)
}

// VerificationServiceInterface defines the email verification operations
type VerificationServiceInterface interface {
	VerifyEmail(ctx context.Context, token string) (*services.VerifyResult, error)
	ResendVerification(ctx context.Context, email string) (string, error)
}

// AuthHandler handles the local authentication endpoints
type AuthHandler struct {
	service      AuthServiceInterface
	verification VerificationServiceInterface
	errs         *ErrorWriter
	cookies      auth.CookieConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, verification VerificationServiceInterface, errs *ErrorWriter, cookies auth.CookieConfig) *AuthHandler {
	return &AuthHandler{
		service:      service,
		verification: verification,
		errs:         errs,
		cookies:      cookies,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration. Password
// strength is checked by the service so every broken rule is reported.
type RegisterRequest struct {
	FirstName       string `json:"firstName" validate:"required,max=100"`
	LastName        string `json:"lastName" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// ResendVerificationRequest represents the request body for resending verification email
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Response DTOs

// RegisterResponse is returned with 201 on registration
type RegisterResponse struct {
	Success              bool                      `json:"success"`
	User                 *services.AccountResponse `json:"user"`
	RequiresVerification bool                      `json:"requiresVerification"`
	Message              string                    `json:"message"`
	Warning              string                    `json:"warning,omitempty"`
}

// SessionResponse is returned by every endpoint that signs the caller in
type SessionResponse struct {
	Success  bool                      `json:"success"`
	Token    string                    `json:"token"`
	User     *services.AccountResponse `json:"user"`
	NextStep string                    `json:"nextStep"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

// CSRFTokenResponse carries a fresh double-submit token
type CSRFTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}

func newSessionResponse(result *services.SessionResult) SessionResponse {
	return SessionResponse{
		Success:  true,
		Token:    result.Token,
		User:     services.NewAccountResponse(result.Account),
		NextStep: result.NextStep,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if err := ValidateRequest(req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	result, err := h.service.Register(r.Context(), services.RegisterInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Success:              true,
		User:                 services.NewAccountResponse(result.Account),
		RequiresVerification: result.RequiresVerification,
		Message:              "Account created. Check your email to verify your address.",
		Warning:              result.Warning,
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if err := ValidateRequest(req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, newSessionResponse(result))
}

// VerifyEmail handles GET /auth/verify-email?token=
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		pkghttp.WriteErrorResponse(w, http.StatusBadRequest, pkghttp.ErrorResponse{
			Error:   "token_invalid",
			Message: "Verification token is required",
			Invalid: true,
		})
		return
	}

	result, err := h.verification.VerifyEmail(r.Context(), token)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	if result.AlreadyVerified {
		writeAlreadyVerified(w)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, newSessionResponse(result.Session))
}

// ResendVerification handles POST /auth/resend-verification
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if err := ValidateRequest(req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	warning, err := h.verification.ResendVerification(r.Context(), req.Email)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: "A new verification link has been sent",
		Warning: warning,
	})
}

// CSRFToken handles GET /auth/csrf-token. The token is returned in the body
// and mirrored into a readable cookie for the double-submit check.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := pkgauth.GenerateCSRFToken()
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	auth.SetCSRFTokenCookie(w, token, CSRFTokenTTL, h.cookies)
	w.Header().Set("Cache-Control", "no-store")
	pkghttp.WriteJSON(w, http.StatusOK, CSRFTokenResponse{CSRFToken: token})
}
