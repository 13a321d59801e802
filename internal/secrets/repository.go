package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Repository: reads credentials from the env_vars table. The connection is opened lazily.
type Repository struct {
	dialector gorm.Dialector
	maxOpen   int
	logger    *slog.Logger

	mu    sync.Mutex
	db    *gorm.DB
	sqlDB *sql.DB
}

// NewRepository: creates a Repository for dialector. maxOpen <= 0 keeps the driver default.
func NewRepository(dialector gorm.Dialector, maxOpen int, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{dialector: dialector, maxOpen: maxOpen, logger: logger}
}

// NewRepositoryWithDB: wraps an open connection.
func NewRepositoryWithDB(db *gorm.DB) (*Repository, error) {
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get secrets db handle: %w", err)
	}
	return &Repository{db: db, sqlDB: sqlDB, logger: slog.Default()}, nil
}

// Credentials: implements Provider.
func (r *Repository) Credentials(ctx context.Context) (Credentials, error) {
	db, err := r.getDB()
	if err != nil {
		return Credentials{}, err
	}

	var row EnvVars
	if err := db.WithContext(ctx).Order("id").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, fmt.Errorf("query env_vars: %w", err)
	}
	return Credentials{User: row.User, Pass: row.Pass, MenuBaseURL: row.MenuBaseURL}, nil
}

// Ping: checks the connection.
func (r *Repository) Ping(ctx context.Context) error {
	if _, err := r.getDB(); err != nil {
		return err
	}
	r.mu.Lock()
	sqlDB := r.sqlDB
	r.mu.Unlock()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping secrets db: %w", err)
	}
	return nil
}

// Close: closes the connection.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sqlDB == nil {
		return
	}
	_ = r.sqlDB.Close()
	r.sqlDB = nil
	r.db = nil
}

func (r *Repository) getDB() (*gorm.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return r.db, nil
	}
	if r.dialector == nil {
		return nil, errors.New("secrets db is not configured")
	}

	db, err := gorm.Open(r.dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open secrets db: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get secrets db handle: %w", err)
	}
	if r.maxOpen > 0 {
		sqlDB.SetMaxOpenConns(r.maxOpen)
	}

	r.logger.Info("secrets_db_connected", "dialect", r.dialector.Name())
	r.db = db
	r.sqlDB = sqlDB
	return db, nil
}

func ensureSchema(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	if err := db.AutoMigrate(&EnvVars{}); err != nil {
		return fmt.Errorf("prepare env_vars table: %w", err)
	}
	return nil
}
