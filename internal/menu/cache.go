package menu

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/tl-its-umich-edu/m-voice/internal/cache"
	"github.com/tl-its-umich-edu/m-voice/internal/config"
)

// ErrUnknownCacheBackend: returned for a MENU_CACHE_BACKEND other than none, memory or valkey.
var ErrUnknownCacheBackend = errors.New("unknown menu cache backend")

// Cache: stores raw menu payloads by query key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close()
}

// NewCache: builds the configured cache backend.
func NewCache(cfg config.MenuCacheConfig) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return noopCache{}, nil
	case "memory":
		return newMemoryCache(cfg), nil
	case "valkey":
		return newValkeyCache(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCacheBackend, cfg.Backend)
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (noopCache) Set(context.Context, string, []byte) error         { return nil }
func (noopCache) Ping(context.Context) error                        { return nil }
func (noopCache) Close()                                            {}

type memoryCache struct {
	entries *cache.TTLCache[string, []byte]
}

func newMemoryCache(cfg config.MenuCacheConfig) *memoryCache {
	return &memoryCache{entries: cache.NewTTLCache[string, []byte](cfg.MaxEntries, cacheTTL(cfg))}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.entries.Get(key)
	return value, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte) error {
	m.entries.Set(key, append([]byte(nil), value...))
	return nil
}

func (m *memoryCache) Ping(context.Context) error { return nil }
func (m *memoryCache) Close()                     {}

type valkeyCache struct {
	client valkey.Client
	ttl    time.Duration
}

func newValkeyCache(cfg config.MenuCacheConfig) (*valkeyCache, error) {
	conn, err := parseCacheURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse menu cache url: %w", err)
	}

	var tlsConfig *tls.Config
	if conn.useTLS {
		host, _, splitErr := net.SplitHostPort(conn.addr)
		if splitErr != nil {
			return nil, fmt.Errorf("parse menu cache addr: %w", splitErr)
		}
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		TLSConfig:    tlsConfig,
		Username:     conn.username,
		Password:     conn.password,
		InitAddress:  []string{conn.addr},
		SelectDB:     conn.selectDB,
		DisableCache: cfg.DisableCache,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}
	return &valkeyCache{client: client, ttl: cacheTTL(cfg)}, nil
}

func (v *valkeyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := v.client.B().Get().Key(key).Build()
	raw, err := v.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("valkey get: %w", err)
	}
	decoded, err := decompressZstd(raw)
	if err != nil {
		return nil, false, err
	}
	return decoded, true, nil
}

func (v *valkeyCache) Set(ctx context.Context, key string, value []byte) error {
	compressed, err := compressZstd(value)
	if err != nil {
		return err
	}
	cmd := v.client.B().Set().Key(key).Value(valkey.BinaryString(compressed)).Ex(v.ttl).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set: %w", err)
	}
	return nil
}

func (v *valkeyCache) Ping(ctx context.Context) error {
	cmd := v.client.B().Ping().Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey ping: %w", err)
	}
	return nil
}

func (v *valkeyCache) Close() {
	if v.client != nil {
		v.client.Close()
	}
}

func cacheTTL(cfg config.MenuCacheConfig) time.Duration {
	if ttl := cfg.TTL(); ttl > 0 {
		return ttl
	}
	return 5 * time.Minute
}
