// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/contactform/internal/domain"
)

// Repository defines the interface for persisting users.
// Implementations must be safe for concurrent use and must enforce phone
// uniqueness themselves.
type Repository interface {
	// FindByPhone returns the user with the given phone, or nil if none exists.
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)

	// GetUser returns the user with the given ID, or nil if none exists.
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// CreateUser inserts a user with empty data.
	// Returns an error wrapping domain.ErrDuplicate if the phone is taken.
	CreateUser(ctx context.Context, email, phone string) (*domain.User, error)

	// UpdateData replaces the data blob of a user.
	// Returns an error wrapping domain.ErrNotFound if the user does not exist.
	UpdateData(ctx context.Context, id int64, data string) (*domain.User, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
