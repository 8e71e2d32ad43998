// Package domain contains core domain types for the contact intake service.
package domain

import (
	"time"
)

// User represents one form submitter. Phone is unique across users.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasData returns true once agent output has been stored on the user.
func (u *User) HasData() bool {
	return u.Data != ""
}
