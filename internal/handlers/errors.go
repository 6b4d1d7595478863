package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/gatehouse/internal/auth/google"
	"github.com/BradenHooton/gatehouse/internal/models"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	"github.com/getsentry/sentry-go"
)

const maxRequestBytes = 64 << 10

// ErrorWriter maps service errors onto the JSON error envelope. Unexpected
// errors are logged, reported to Sentry and returned without detail outside
// development.
type ErrorWriter struct {
	logger      *slog.Logger
	development bool
}

func NewErrorWriter(logger *slog.Logger, development bool) *ErrorWriter {
	return &ErrorWriter{logger: logger, development: development}
}

// Write picks the status and reason flags for err
func (e *ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	var rejection *google.RejectionError
	if errors.As(err, &rejection) {
		e.writeRejection(w, rejection)
		return
	}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		pkghttp.WriteValidationError(w, "Validation failed", fieldReasons(verr))
		return
	}

	switch {
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteBadRequest(w, "Invalid request")
	case errors.Is(err, models.ErrEmailNotVerified):
		pkghttp.WriteErrorResponse(w, http.StatusUnauthorized, pkghttp.ErrorResponse{
			Error:                "email_not_verified",
			Message:              "Please verify your email address before signing in",
			RequiresVerification: true,
		})
	case errors.Is(err, models.ErrAccountInactive):
		pkghttp.WriteError(w, http.StatusUnauthorized, "account_inactive", "Account is inactive")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid email or password")
	case errors.Is(err, models.ErrTokenExpired):
		pkghttp.WriteErrorResponse(w, http.StatusBadRequest, pkghttp.ErrorResponse{
			Error:   "token_expired",
			Message: "Verification link has expired. Request a new one.",
			Expired: true,
		})
	case errors.Is(err, models.ErrTokenInvalid):
		pkghttp.WriteErrorResponse(w, http.StatusBadRequest, pkghttp.ErrorResponse{
			Error:   "token_invalid",
			Message: "Verification link is invalid",
			Invalid: true,
		})
	case errors.Is(err, models.ErrAlreadyVerified):
		writeAlreadyVerified(w)
	case errors.Is(err, models.ErrProfileAlreadyCompleted):
		pkghttp.WriteError(w, http.StatusBadRequest, "profile_already_completed", "Profile is already completed")
	case errors.Is(err, models.ErrPasswordLoginDisabled):
		pkghttp.WriteError(w, http.StatusBadRequest, "password_login_disabled", "This account signs in with an external provider")
	case errors.Is(err, models.ErrRequiresManualVerification):
		pkghttp.WriteErrorResponse(w, http.StatusConflict, pkghttp.ErrorResponse{
			Error:                      "requires_manual_verification",
			Message:                    "This sign-in does not match the email on file. Please contact support.",
			RequiresManualVerification: true,
		})
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "An account with this email already exists")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Forbidden")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Account not found")
	default:
		e.writeInternal(w, r, err)
	}
}

func (e *ErrorWriter) writeRejection(w http.ResponseWriter, rejection *google.RejectionError) {
	status, code := http.StatusUnauthorized, "unauthorized"
	switch {
	case errors.Is(rejection, models.ErrValidation):
		status, code = http.StatusBadRequest, "validation_failed"
	case errors.Is(rejection, models.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	}

	e.logger.Info("google sign-in rejected",
		slog.Int("stage", rejection.Stage),
		slog.String("check", rejection.Name),
		slog.String("reason", rejection.Message))

	pkghttp.WriteError(w, status, code, rejection.Message)
}

func (e *ErrorWriter) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	e.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))

	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}

	if e.development {
		pkghttp.WriteErrorWithDetails(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred", err.Error())
		return
	}
	pkghttp.WriteInternalError(w, "An unexpected error occurred")
}

func writeAlreadyVerified(w http.ResponseWriter) {
	pkghttp.WriteErrorResponse(w, http.StatusBadRequest, pkghttp.ErrorResponse{
		Error:           "already_verified",
		Message:         "Email address is already verified. Please sign in.",
		AlreadyVerified: true,
	})
}

func fieldReasons(verr *models.ValidationError) []pkghttp.FieldReason {
	out := make([]pkghttp.FieldReason, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		out = append(out, pkghttp.FieldReason{Field: f.Field, Reason: f.Reason})
	}
	return out
}

// decodeJSON reads a bounded JSON body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(dst); err != nil {
		return models.NewValidationError("body", "must be valid JSON")
	}
	return nil
}
