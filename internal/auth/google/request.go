package google

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/BradenHooton/gatehouse/internal/auth"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// maxBodyBytes bounds the sign-in body; an ID token is a few KB at most
const maxBodyBytes = 64 << 10

// Body is the JSON payload of POST /auth/google
type Body struct {
	IDToken   string `json:"idToken"`
	CSRFToken string `json:"csrfToken"`
	Origin    string `json:"origin"`
}

// Request is everything the pipeline inspects, captured from the HTTP request
// up front so every stage is a pure function of it.
type Request struct {
	JSONContentType bool
	DecodeErr       error
	Body            Body

	HeaderCSRFToken string
	CookieCSRFToken string
	HasCSRFCookie   bool
	HeaderOrigin    string
	RequestedWith   string
}

// NewRequest captures a sign-in request. A decode failure is recorded rather
// than returned so the shape stage can report it in order.
func NewRequest(r *http.Request) *Request {
	req := &Request{
		JSONContentType: pkghttp.IsJSONContentType(r),
		HeaderCSRFToken: r.Header.Get("X-CSRF-Token"),
		HeaderOrigin:    r.Header.Get("Origin"),
		RequestedWith:   r.Header.Get("X-Requested-With"),
	}
	req.CookieCSRFToken, req.HasCSRFCookie = auth.GetCSRFTokenCookie(r)

	if r.Body == nil {
		req.DecodeErr = io.EOF
		return req
	}
	req.DecodeErr = json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req.Body)
	return req
}
