package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/contactform/internal/domain"
	"github.com/ashureev/contactform/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	writeRetries   = 3
	writeBaseDelay = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode lets readers proceed while a writer holds the lock.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL,
		phone TEXT NOT NULL UNIQUE,
		data TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// FindByPhone returns the user registered with phone, or nil.
func (s *SQLiteStore) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	query := `
		SELECT id, email, phone, data, created_at, updated_at
		FROM users WHERE phone = ?`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, phone))
	if err != nil {
		return nil, fmt.Errorf("find user by phone: %w", err)
	}
	return user, nil
}

// GetUser returns the user with the given ID, or nil.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, email, phone, data, created_at, updated_at
		FROM users WHERE id = ?`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user with empty data.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, phone string) (*domain.User, error) {
	query := `
	INSERT INTO users (email, phone, data, created_at, updated_at)
	VALUES (?, ?, '', ?, ?)`

	now := time.Now()
	var id int64
	err := shared.RetryOnConflict(ctx, writeRetries, writeBaseDelay, func() error {
		result, err := s.db.ExecContext(ctx, query, email, phone, now.Unix(), now.Unix())
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if shared.IsSQLiteUniqueError(err) {
		return nil, fmt.Errorf("create user with phone %q: %w", phone, domain.ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &domain.User{
		ID:        id,
		Email:     email,
		Phone:     phone,
		CreatedAt: time.Unix(now.Unix(), 0),
		UpdatedAt: time.Unix(now.Unix(), 0),
	}, nil
}

// UpdateData replaces the data blob of a user and returns the updated row.
func (s *SQLiteStore) UpdateData(ctx context.Context, id int64, data string) (*domain.User, error) {
	query := `UPDATE users SET data = ?, updated_at = ? WHERE id = ?`

	var rows int64
	err := shared.RetryOnConflict(ctx, writeRetries, writeBaseDelay, func() error {
		result, err := s.db.ExecContext(ctx, query, data, time.Now().Unix(), id)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update user data: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateData affected 0 rows", "user_id", id)
		return nil, fmt.Errorf("update user %d: %w", id, domain.ErrNotFound)
	}

	return s.GetUser(ctx, id)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var createdAt, updatedAt int64

	err := row.Scan(&user.ID, &user.Email, &user.Phone, &user.Data, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}
