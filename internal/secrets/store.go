package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
)

// Store: the configured credential source with caching, health check and cleanup.
type Store struct {
	*CachedProvider
	repo *Repository
}

// Open: builds the backend named by SECRETS_BACKEND: env, postgres or sqlite.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	ttl := time.Duration(cfg.Secrets.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Secrets.Backend)) {
	case "", "env":
		return &Store{CachedProvider: NewCachedProvider(NewEnvProvider(cfg), ttl)}, nil
	case "postgres":
		repo := NewRepository(postgres.Open(cfg.Database.DSN()), cfg.Database.MaxPool, logger)
		return &Store{CachedProvider: NewCachedProvider(repo, ttl), repo: repo}, nil
	case "sqlite":
		repo := NewRepository(sqlite.Open(cfg.Secrets.SQLitePath), 1, logger)
		return &Store{CachedProvider: NewCachedProvider(repo, ttl), repo: repo}, nil
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Secrets.Backend)
	}
}

// NewStore: wraps an existing provider, mainly for tests.
func NewStore(provider Provider, ttl time.Duration) *Store {
	return &Store{CachedProvider: NewCachedProvider(provider, ttl)}
}

// Ping: checks the database backend; the env backend is always healthy.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.repo == nil {
		return nil
	}
	return s.repo.Ping(ctx)
}

// Close: releases the database connection.
func (s *Store) Close() {
	if s == nil || s.repo == nil {
		return
	}
	s.repo.Close()
}
