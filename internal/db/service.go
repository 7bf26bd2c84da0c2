package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"retailpipe/internal/config"
	"retailpipe/pkg/errors"
)

// Service provides Postgres database operations for the pipeline stages
type Service struct {
	db        *sql.DB
	config    Config
	connected bool
}

// Config holds Postgres connection configuration
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	Timeout  time.Duration
}

// FromAppConfig builds a connection Config from the pipeline configuration
func FromAppConfig(cfg config.Database) Config {
	return Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Database: cfg.Name,
		User:     cfg.User,
		Password: cfg.Password,
		SSLMode:  cfg.SSLMode,
	}
}

// NewService creates a new database service
func NewService(config Config) *Service {
	return &Service{config: config}
}

// NewServiceWithDB wraps an existing connection, used by tests with sqlmock
func NewServiceWithDB(db *sql.DB) *Service {
	return &Service{db: db, connected: true}
}

// Connect validates the configuration and establishes a connection to Postgres
func (s *Service) Connect() error {
	if s.connected {
		return nil
	}

	if err := ValidateConfig(s.config); err != nil {
		return err
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		s.config.Host,
		s.config.Port,
		s.config.Database,
		s.config.User,
		s.config.Password,
		s.config.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return errors.ConnectionError("Failed to open Postgres connection", err).
			WithContext("host", s.config.Host).
			WithContext("database", s.config.Database)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	ctx, cancel := s.getContext()
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.ConnectionError("Failed to connect to Postgres", err).
			WithContext("host", s.config.Host).
			WithContext("database", s.config.Database)
	}

	s.db = db
	s.connected = true
	return nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	s.connected = false
	return nil
}

// WithTransaction runs fn inside a single transaction. Any error from fn
// rolls back every statement executed so far; otherwise the transaction is
// committed. This is the all-or-nothing unit each transactional stage uses.
func (s *Service) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to database").
			WithSuggestions("Call Connect() before starting a transaction")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return errors.Wrap(err, errors.ErrCodeSQLTransaction,
				fmt.Sprintf("Rollback failed after error: %v", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to commit transaction")
	}

	return nil
}

// QueryInt runs a query expected to return a single integer scalar
func (s *Service) QueryInt(ctx context.Context, query string, args ...interface{}) (int, error) {
	if !s.connected {
		return 0, fmt.Errorf("not connected to database")
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.SQLError("Scalar query failed", query, err)
	}
	return n, nil
}

// Query runs a query and returns the rows
func (s *Service) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if !s.connected {
		return nil, fmt.Errorf("not connected to database")
	}
	return s.db.QueryContext(ctx, query, args...)
}

// GetDB returns the underlying database connection
func (s *Service) GetDB() *sql.DB {
	return s.db
}

func (s *Service) getContext() (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// ValidateConfig validates the connection configuration before any dial
func ValidateConfig(config Config) error {
	if config.Host == "" {
		return errors.ValidationError("host", config.Host, "host is required")
	}
	if config.Port == 0 {
		return errors.ValidationError("port", config.Port, "port is required")
	}
	if config.Database == "" {
		return errors.ValidationError("database", config.Database, "database is required")
	}
	if config.User == "" {
		return errors.ValidationError("user", config.User, "user is required")
	}
	return nil
}
