package model

import "time"

// User represents a registered user account.
//
// Email is the login identifier; both Email and Username are unique across
// all users (the DB enforces this with UNIQUE COLLATE NOCASE columns).
//
// WHY PasswordHash `json:"-"`?
// The bcrypt hash must never leave the server, even by accident in a debug
// endpoint. The "-" tag makes encoding/json skip the field entirely.
//
// GitHubID is nil for accounts created through the registration form. It is
// set when the user signs in with GitHub (see auth.GitHubProvider).
type User struct {
	ID           string    `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"`
	Username     string    `json:"username"   db:"username"`
	FirstName    string    `json:"firstName"  db:"first_name"`
	LastName     string    `json:"lastName"   db:"last_name"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	GitHubID     *int64    `json:"githubId"   db:"github_id"`
	IsActive     bool      `json:"isActive"   db:"is_active"`
	DateJoined   time.Time `json:"dateJoined" db:"date_joined"`
}

// String returns the email, which is how users are identified everywhere
// outside the templates.
func (u *User) String() string {
	return u.Email
}
