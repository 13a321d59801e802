package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
)

func setupTestRepository(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	repo, err := NewRepositoryWithDB(db)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(repo.Close)
	return repo, db
}

func TestRepositoryReadsFirstRow(t *testing.T) {
	repo, db := setupTestRepository(t)
	ctx := context.Background()

	if _, err := repo.Credentials(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}

	rows := []EnvVars{
		{ID: 1, User: "dialogflow", Pass: "secret", MenuBaseURL: "http://menu.test/api?view=json"},
		{ID: 2, User: "other", Pass: "other"},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	creds, err := repo.Credentials(ctx)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if creds.User != "dialogflow" || creds.MenuBaseURL != "http://menu.test/api?view=json" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestVerify(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	tests := []struct {
		name  string
		creds Credentials
		user  string
		pass  string
		want  bool
	}{
		{name: "plain match", creds: Credentials{User: "u", Pass: "p"}, user: "u", pass: "p", want: true},
		{name: "plain wrong pass", creds: Credentials{User: "u", Pass: "p"}, user: "u", pass: "x", want: false},
		{name: "wrong user", creds: Credentials{User: "u", Pass: "p"}, user: "v", pass: "p", want: false},
		{name: "bcrypt match", creds: Credentials{User: "u", Pass: string(hash)}, user: "u", pass: "hunter2", want: true},
		{name: "bcrypt wrong", creds: Credentials{User: "u", Pass: string(hash)}, user: "u", pass: "hunter3", want: false},
		{name: "empty stored", creds: Credentials{}, user: "", pass: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify(tt.creds, tt.user, tt.pass); got != tt.want {
				t.Fatalf("Verify = %v, want %v", got, tt.want)
			}
		})
	}
}

type countingProvider struct {
	calls int
	creds Credentials
	err   error
}

func (p *countingProvider) Credentials(context.Context) (Credentials, error) {
	p.calls++
	return p.creds, p.err
}

func TestCachedProvider(t *testing.T) {
	inner := &countingProvider{creds: Credentials{User: "u", Pass: "p", MenuBaseURL: "http://override"}}
	store := NewStore(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Credentials(ctx); err != nil {
			t.Fatalf("credentials: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected one backend lookup, got %d", inner.calls)
	}

	base, err := store.MenuBaseURL(ctx)
	if err != nil || base != "http://override" {
		t.Fatalf("unexpected base url %q (%v)", base, err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("env-style store must be healthy: %v", err)
	}
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	inner := &countingProvider{err: errors.New("db down")}
	provider := NewCachedProvider(inner, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := provider.Credentials(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	}
	if inner.calls != 2 {
		t.Fatalf("errors must not be cached, got %d calls", inner.calls)
	}
}

func TestOpenBackends(t *testing.T) {
	cfg := &config.Config{
		HTTPAuth: config.HTTPAuthConfig{User: "u", Password: "p"},
		Secrets:  config.SecretsConfig{Backend: "env", CacheTTLSeconds: 5},
	}
	store, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("open env: %v", err)
	}
	creds, err := store.Credentials(context.Background())
	if err != nil || creds.User != "u" {
		t.Fatalf("unexpected env credentials %+v (%v)", creds, err)
	}

	cfg.Secrets = config.SecretsConfig{Backend: "sqlite", SQLitePath: ":memory:"}
	sqliteStore, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sqliteStore.Close()
	if _, err := sqliteStore.Credentials(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials from empty sqlite store, got %v", err)
	}

	cfg.Secrets.Backend = "vault"
	if _, err := Open(cfg, nil); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
