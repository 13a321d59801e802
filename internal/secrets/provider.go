package secrets

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tl-its-umich-edu/m-voice/internal/cache"
	"github.com/tl-its-umich-edu/m-voice/internal/config"
)

// ErrNoCredentials: returned when the backend holds no secret row.
var ErrNoCredentials = errors.New("no credentials configured")

// Credentials: the webhook credentials and the optional menu API override.
type Credentials struct {
	User        string
	Pass        string
	MenuBaseURL string
}

// Provider: loads the current credentials.
type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// Verify: reports whether user and pass match creds. A stored password starting with "$2" is
// treated as a bcrypt hash.
func Verify(creds Credentials, user, pass string) bool {
	if creds.User == "" || creds.Pass == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(creds.User), []byte(user)) == 1
	var passOK bool
	if strings.HasPrefix(creds.Pass, "$2") {
		passOK = bcrypt.CompareHashAndPassword([]byte(creds.Pass), []byte(pass)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(creds.Pass), []byte(pass)) == 1
	}
	return userOK && passOK
}

// EnvProvider: serves credentials from configuration.
type EnvProvider struct {
	creds Credentials
}

// NewEnvProvider: creates an EnvProvider.
func NewEnvProvider(cfg *config.Config) *EnvProvider {
	return &EnvProvider{creds: Credentials{
		User:        cfg.HTTPAuth.User,
		Pass:        cfg.HTTPAuth.Password,
		MenuBaseURL: "",
	}}
}

// Credentials: implements Provider.
func (p *EnvProvider) Credentials(context.Context) (Credentials, error) {
	if p.creds.User == "" {
		return Credentials{}, ErrNoCredentials
	}
	return p.creds, nil
}

const cacheKey = "credentials"

// CachedProvider: keeps the last successful lookup for a fixed lifetime.
type CachedProvider struct {
	next  Provider
	cache *cache.TTLCache[string, Credentials]
}

// NewCachedProvider: wraps next.
func NewCachedProvider(next Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: cache.NewTTLCache[string, Credentials](1, ttl)}
}

// Credentials: implements Provider.
func (p *CachedProvider) Credentials(ctx context.Context) (Credentials, error) {
	if creds, ok := p.cache.Get(cacheKey); ok {
		return creds, nil
	}
	creds, err := p.next.Credentials(ctx)
	if err != nil {
		return Credentials{}, err
	}
	p.cache.Set(cacheKey, creds)
	return creds, nil
}

// MenuBaseURL: returns the menu API override, if any.
func (p *CachedProvider) MenuBaseURL(ctx context.Context) (string, error) {
	creds, err := p.Credentials(ctx)
	if err != nil {
		return "", fmt.Errorf("menu base url: %w", err)
	}
	return creds.MenuBaseURL, nil
}
