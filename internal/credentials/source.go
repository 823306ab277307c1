package credentials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"go.uber.org/zap"
)

// Static is a TokenSource backed by a fixed key that never expires.
type Static struct {
	token string
}

// NewStatic creates a token source for a long-lived API key.
func NewStatic(token string) *Static {
	return &Static{token: token}
}

// Token returns the fixed token (ports.TokenSource interface)
func (s *Static) Token(ctx context.Context) (domain.AccessToken, error) {
	if s.token == "" {
		return domain.AccessToken{}, fmt.Errorf("no API key configured")
	}
	return domain.AccessToken{Token: s.token}, nil
}

// FetchFunc obtains a fresh token from the credential provider.
type FetchFunc func(ctx context.Context) (domain.AccessToken, error)

// StaticFetch wraps a fixed API key as a FetchFunc, for providers whose
// keys never rotate.
func StaticFetch(token string) FetchFunc {
	return func(ctx context.Context) (domain.AccessToken, error) {
		if token == "" {
			return domain.AccessToken{}, fmt.Errorf("no API key configured")
		}
		return domain.AccessToken{Token: token}, nil
	}
}

// Renewing caches a token and refreshes it via fetch when the cached token
// is within skew of its expiry. Tokens without an expiry are cached forever.
type Renewing struct {
	fetch  FetchFunc
	skew   time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	current domain.AccessToken
}

// NewRenewing creates a renewing token source
func NewRenewing(fetch FetchFunc, skew time.Duration, logger *zap.Logger) *Renewing {
	if skew <= 0 {
		skew = time.Minute
	}
	return &Renewing{
		fetch:  fetch,
		skew:   skew,
		logger: logger,
	}
}

// Token returns a valid token, refreshing it first when near expiry
// (ports.TokenSource interface)
func (r *Renewing) Token(ctx context.Context) (domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.valid(time.Now()) {
		return r.current, nil
	}

	token, err := r.fetch(ctx)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("failed to refresh token: %w", err)
	}

	r.current = token
	if !token.ExpiresOn.IsZero() {
		r.logger.Debug("token refreshed",
			zap.Time("expires_on", token.ExpiresOn))
	}

	return r.current, nil
}

// valid reports whether the cached token can still be used at now.
// Callers must hold mu.
func (r *Renewing) valid(now time.Time) bool {
	if r.current.Token == "" {
		return false
	}
	if r.current.ExpiresOn.IsZero() {
		return true
	}
	return now.Before(r.current.ExpiresOn.Add(-r.skew))
}
