package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/auth/google"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// GoogleSignInService defines the Google sign-in operation
type GoogleSignInService interface {
	SignIn(ctx context.Context, req *google.Request) (*services.SessionResult, error)
}

// GoogleHandler handles POST /auth/google
type GoogleHandler struct {
	service       GoogleSignInService
	errs          *ErrorWriter
	cookies       auth.CookieConfig
	sessionCookie bool
}

// NewGoogleHandler creates a GoogleHandler. When sessionCookie is set the
// session is also delivered as an httpOnly cookie.
func NewGoogleHandler(service GoogleSignInService, errs *ErrorWriter, cookies auth.CookieConfig, sessionCookie bool) *GoogleHandler {
	return &GoogleHandler{
		service:       service,
		errs:          errs,
		cookies:       cookies,
		sessionCookie: sessionCookie,
	}
}

func (h *GoogleHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SignIn(r.Context(), google.NewRequest(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	if h.sessionCookie {
		auth.SetSessionCookie(w, result.Token, result.TTL, h.cookies)
	}

	pkghttp.WriteJSON(w, http.StatusOK, newSessionResponse(result))
}
