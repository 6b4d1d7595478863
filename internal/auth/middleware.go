package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// AccountContextKey is the key for storing the authenticated account in context
	AccountContextKey contextKey = "account"
	// ClaimsContextKey is the key for storing the session claims in context
	ClaimsContextKey contextKey = "session_claims"
)

// Gate failure codes returned in the error envelope
const (
	CodeTokenMissing          = "token_missing"
	CodeTokenMalformed        = "token_malformed"
	CodeTokenExpired          = "token_expired"
	CodeTokenSignatureInvalid = "token_signature_invalid"
	CodeAccountNotFound       = "account_not_found"
	CodeAccountInactive       = "account_inactive"
	CodeProfileIncomplete     = "profile_incomplete"
)

// AccountLoader fetches the account a session belongs to
type AccountLoader interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

// SessionMiddleware authenticates the request from the bearer token, or the
// session cookie when no Authorization header is sent, and injects the
// account into the context.
func SessionMiddleware(tm *TokenManager, accounts AccountLoader, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present := pkghttp.BearerToken(r)
			if !present {
				token = GetSessionTokenCookie(r)
				present = token != ""
			}
			if !present {
				pkghttp.WriteError(w, http.StatusUnauthorized, CodeTokenMissing, "Authentication required")
				return
			}
			if token == "" {
				pkghttp.WriteError(w, http.StatusUnauthorized, CodeTokenMalformed, "Invalid authorization header format")
				return
			}

			claims, err := tm.VerifySessionToken(token)
			if err != nil {
				code, message := sessionFailure(err)
				pkghttp.WriteError(w, http.StatusUnauthorized, code, message)
				return
			}

			account, err := accounts.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteError(w, http.StatusUnauthorized, CodeAccountNotFound, "Account not found")
					return
				}
				logger.Error("failed to load session account", "user_id", claims.UserID, "error", err)
				pkghttp.WriteInternalError(w, "An unexpected error occurred")
				return
			}

			if !account.IsActive {
				pkghttp.WriteError(w, http.StatusUnauthorized, CodeAccountInactive, "Account is inactive")
				return
			}

			ctx := context.WithValue(r.Context(), AccountContextKey, account)
			ctx = context.WithValue(ctx, ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFailure(err error) (code, message string) {
	switch {
	case errors.Is(err, models.ErrTokenExpired):
		return CodeTokenExpired, "Session has expired"
	case errors.Is(err, models.ErrTokenMalformed):
		return CodeTokenMalformed, "Session token is malformed"
	default:
		return CodeTokenSignatureInvalid, "Session token is invalid"
	}
}

// RequireCompletedProfile rejects accounts that have not reached the active
// state. It must run after SessionMiddleware.
func RequireCompletedProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := GetAccountFromContext(r)
		if account == nil {
			pkghttp.WriteError(w, http.StatusUnauthorized, CodeTokenMissing, "Authentication required")
			return
		}
		if account.State() != models.StateActive {
			pkghttp.WriteError(w, http.StatusForbidden, CodeProfileIncomplete, "Profile must be completed first")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetAccountFromContext extracts the authenticated account from the request context
func GetAccountFromContext(r *http.Request) *models.Account {
	account, ok := r.Context().Value(AccountContextKey).(*models.Account)
	if !ok {
		return nil
	}
	return account
}

// GetClaimsFromContext extracts the session claims from the request context
func GetClaimsFromContext(r *http.Request) *models.SessionClaims {
	claims, ok := r.Context().Value(ClaimsContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
