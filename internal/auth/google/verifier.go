package google

import (
	"context"
	"crypto/subtle"
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Issuers are the two accepted forms of Google's issuer claim
var Issuers = []string{"accounts.google.com", "https://accounts.google.com"}

const expectedAlg = "RS256"

var csrfTokenPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Config holds the values the pipeline checks requests against
type Config struct {
	ClientID            string
	AllowedOrigins      []string
	RequestedWithMarker string
	MaxTokenAge         time.Duration
}

// Verifier runs the ordered sign-in checks. Cheap input checks come first so
// that forged or replayed requests never reach the network-backed key fetch.
type Verifier struct {
	cfg    Config
	keys   KeySource
	now    func() time.Time
	stages []stage
}

type stage struct {
	name  string
	kind  error
	check func(ctx context.Context, p *pass) error
}

// pass carries state between stages of a single verification
type pass struct {
	req        *Request
	unverified *Claims
	verified   *Claims
}

// stageError is a stage's caller-visible reason
type stageError string

func (e stageError) Error() string { return string(e) }

func NewVerifier(cfg Config, keys KeySource) *Verifier {
	if cfg.RequestedWithMarker == "" {
		cfg.RequestedWithMarker = "XMLHttpRequest"
	}
	if cfg.MaxTokenAge == 0 {
		cfg.MaxTokenAge = time.Hour
	}

	v := &Verifier{cfg: cfg, keys: keys, now: time.Now}
	v.stages = []stage{
		{name: "shape", kind: models.ErrValidation, check: v.checkShape},
		{name: "csrf", kind: models.ErrForbidden, check: v.checkCSRF},
		{name: "origin", kind: models.ErrForbidden, check: v.checkOrigin},
		{name: "header", kind: models.ErrForbidden, check: v.checkRequestedWith},
		{name: "precheck", kind: models.ErrUnauthorized, check: v.checkUnverifiedToken},
		{name: "signature", kind: models.ErrUnauthorized, check: v.checkSignature},
		{name: "claims", kind: models.ErrUnauthorized, check: v.checkVerifiedClaims},
	}
	return v
}

// SetClock replaces the time source used for expiry and freshness checks
func (v *Verifier) SetClock(now func() time.Time) {
	v.now = now
}

// StageNames lists the checks in the order they run
func (v *Verifier) StageNames() []string {
	names := make([]string, len(v.stages))
	for i, s := range v.stages {
		names[i] = s.name
	}
	return names
}

// Verify runs every stage in order and stops at the first rejection, which is
// returned as a *RejectionError. On success the signature-verified claims are
// returned.
func (v *Verifier) Verify(ctx context.Context, req *Request) (*Claims, error) {
	p := &pass{req: req}

	for i, s := range v.stages {
		if err := s.check(ctx, p); err != nil {
			return nil, &RejectionError{
				Stage:   i + 1,
				Name:    s.name,
				Kind:    s.kind,
				Message: err.Error(),
			}
		}
	}

	return p.verified, nil
}

func (v *Verifier) checkShape(_ context.Context, p *pass) error {
	req := p.req
	if !req.JSONContentType {
		return stageError("Content-Type must be application/json")
	}
	if req.DecodeErr != nil {
		return stageError("Invalid request body")
	}

	var missing []string
	if req.Body.IDToken == "" {
		missing = append(missing, "idToken")
	}
	if req.Body.CSRFToken == "" {
		missing = append(missing, "csrfToken")
	}
	if req.Body.Origin == "" {
		missing = append(missing, "origin")
	}
	if len(missing) > 0 {
		return stageError("Missing required fields: " + strings.Join(missing, ", "))
	}

	if strings.Count(req.Body.IDToken, ".") != 2 {
		return stageError("Invalid token format")
	}
	for _, segment := range strings.Split(req.Body.IDToken, ".") {
		if segment == "" {
			return stageError("Invalid token format")
		}
	}
	return nil
}

func (v *Verifier) checkCSRF(_ context.Context, p *pass) error {
	body := p.req.Body.CSRFToken
	header := p.req.HeaderCSRFToken

	if header == "" {
		return stageError("Missing CSRF token header")
	}
	if subtle.ConstantTimeCompare([]byte(body), []byte(header)) != 1 {
		return stageError("CSRF token mismatch")
	}
	if !csrfTokenPattern.MatchString(body) {
		return stageError("Invalid CSRF token format")
	}
	if p.req.HasCSRFCookie && subtle.ConstantTimeCompare([]byte(body), []byte(p.req.CookieCSRFToken)) != 1 {
		return stageError("CSRF token mismatch")
	}
	return nil
}

func (v *Verifier) checkOrigin(_ context.Context, p *pass) error {
	origin := normalizeOrigin(p.req.Body.Origin)
	if origin == "" {
		return stageError("Missing origin")
	}
	if !slices.Contains(v.cfg.AllowedOrigins, origin) {
		return stageError("Origin not allowed")
	}
	if p.req.HeaderOrigin != "" && normalizeOrigin(p.req.HeaderOrigin) != origin {
		return stageError("Origin mismatch")
	}
	return nil
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.TrimSpace(origin), "/")
}

func (v *Verifier) checkRequestedWith(_ context.Context, p *pass) error {
	if p.req.RequestedWith != v.cfg.RequestedWithMarker {
		return stageError("Missing or invalid X-Requested-With header")
	}
	return nil
}

// checkUnverifiedToken decodes the token without trusting it and rejects
// anything that could never pass the signature stage.
func (v *Verifier) checkUnverifiedToken(_ context.Context, p *pass) error {
	claims := &Claims{}
	token, _, err := jwt.NewParser().ParseUnverified(p.req.Body.IDToken, claims)
	if err != nil {
		return stageError("Invalid token encoding")
	}

	if alg, _ := token.Header["alg"].(string); alg != expectedAlg {
		return stageError("Invalid token algorithm")
	}
	if err := v.checkClaimSet(claims); err != nil {
		return err
	}

	p.unverified = claims
	return nil
}

// checkClaimSet holds the claim rules shared by the pre-check and the
// post-signature re-check
func (v *Verifier) checkClaimSet(c *Claims) error {
	if c.Issuer == "" || len(c.Audience) == 0 || c.ExpiresAt == nil || c.Subject == "" || c.Email == "" {
		return stageError("Token is missing required claims")
	}
	if !slices.Contains(Issuers, c.Issuer) {
		return stageError("Invalid token issuer")
	}
	if len(c.Audience) != 1 || c.Audience[0] != v.cfg.ClientID {
		return stageError("Invalid token audience")
	}
	if !v.now().Before(c.ExpiresAt.Time) {
		return stageError("Token expired")
	}
	return nil
}

func (v *Verifier) checkSignature(ctx context.Context, p *pass) error {
	keyfunc, err := v.keys.Keyfunc(ctx)
	if err != nil {
		return stageError("Unable to verify token signature")
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{expectedAlg}),
		jwt.WithAudience(v.cfg.ClientID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)

	if _, err := parser.ParseWithClaims(p.req.Body.IDToken, claims, keyfunc); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return stageError("Token expired")
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return stageError("Invalid token audience")
		default:
			return stageError("Invalid token signature")
		}
	}

	if claims.IssuedAt == nil {
		return stageError("Token is missing issued-at")
	}
	if v.now().Sub(claims.IssuedAt.Time) > v.cfg.MaxTokenAge {
		return stageError("Token too old")
	}

	p.verified = claims
	return nil
}

func (v *Verifier) checkVerifiedClaims(_ context.Context, p *pass) error {
	if !bool(p.verified.EmailVerified) {
		return stageError("Email not verified by Google")
	}
	return v.checkClaimSet(p.verified)
}
