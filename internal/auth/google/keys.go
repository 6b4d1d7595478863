package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// DefaultJWKSURL is Google's published signing-key set
const DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// KeySource supplies the provider's current public keys
type KeySource interface {
	Keyfunc(ctx context.Context) (jwt.Keyfunc, error)
}

// RemoteKeySource fetches Google's JWKS on first use and keeps it fresh in
// the background. A failed first fetch is retried on a later request, so the
// service starts even when Google is unreachable.
type RemoteKeySource struct {
	url     string
	timeout time.Duration
	logger  *slog.Logger
	ctx     context.Context
	fetch   func() (*keyfunc.JWKS, error)

	// concurrent first-use callers share one fetch
	group singleflight.Group

	mu   sync.Mutex
	jwks *keyfunc.JWKS
}

// NewRemoteKeySource creates a lazily initialized JWKS source. ctx bounds the
// background refresh goroutine.
func NewRemoteKeySource(ctx context.Context, url string, timeout time.Duration, logger *slog.Logger) *RemoteKeySource {
	if url == "" {
		url = DefaultJWKSURL
	}
	s := &RemoteKeySource{
		url:     url,
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
	}
	s.fetch = s.fetchRemote
	return s
}

// Keyfunc returns the cached key lookup, loading the key set first if needed.
// Waiting for an in-flight load gives up when ctx is done.
func (s *RemoteKeySource) Keyfunc(ctx context.Context) (jwt.Keyfunc, error) {
	if jwks := s.loaded(); jwks != nil {
		return jwks.Keyfunc, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.group.DoChan("jwks", func() (interface{}, error) {
		if jwks := s.loaded(); jwks != nil {
			return jwks, nil
		}

		jwks, err := s.fetch()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch google signing keys: %w", err)
		}

		s.mu.Lock()
		s.jwks = jwks
		s.mu.Unlock()

		s.logger.Info("google JWKS loaded", "url", s.url, "keys", len(jwks.KIDs()))
		return jwks, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*keyfunc.JWKS).Keyfunc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *RemoteKeySource) loaded() *keyfunc.JWKS {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jwks
}

func (s *RemoteKeySource) fetchRemote() (*keyfunc.JWKS, error) {
	return keyfunc.Get(s.url, keyfunc.Options{
		Client: &http.Client{Timeout: s.timeout},
		Ctx:    s.ctx,
		RefreshErrorHandler: func(err error) {
			s.logger.Warn("google JWKS refresh failed", "error", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    s.timeout,
		RefreshUnknownKID: true,
	})
}

// Close stops the background refresh
func (s *RemoteKeySource) Close() {
	if jwks := s.loaded(); jwks != nil {
		jwks.EndBackground()
	}
}
