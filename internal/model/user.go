// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// A user registers with a username and password, or signs in through GitHub.
// GitHub-only accounts have an empty PasswordHash and cannot use password login.
//
// PasswordHash and GitHubID carry `json:"-"`: the encoder skips them, so a User
// can be written straight into a response without leaking the hash.
//
// The user's saved posts are not stored on the row; they are the SavedPost
// edges whose SavedBy equals the user ID.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"-"` // 0 when the account is not linked to GitHub
	CreatedAt    time.Time `json:"dateJoined"`
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
