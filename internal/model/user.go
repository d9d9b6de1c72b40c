// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// Accounts are keyed by email. Users who registered with a password have a
// bcrypt hash; users who only ever signed in with Google have an empty one
// and cannot use the password login.
//
// WHY json:"-" ON PasswordHash?
// The hash must never leave the server. The "-" tag makes encoding/json skip
// the field entirely, so handing a *User to writeJSON is always safe.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
