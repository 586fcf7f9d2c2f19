// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. Users sign in with email and password, or
// through GitHub, in which case GitHubID links the account to the GitHub
// identity. IDs are internal xids, not the GitHub number.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"-"` // image store reference, empty when unset
	GitHubID     *int64    `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// UserView is the public representation of a user as seen by a viewer.
// IsSubscribed is false for anonymous viewers and for the user themselves.
type UserView struct {
	Email        string  `json:"email"`
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	IsSubscribed bool    `json:"is_subscribed"`
	Avatar       *string `json:"avatar"`
}
