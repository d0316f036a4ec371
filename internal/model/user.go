// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts are created either through the registration form (username + password)
// or on first GitHub login. A GitHub-only account has an empty PasswordHash and can
// only sign in through GitHub; a form account has GitHubID == 0.
//
// WHY NOT EXPOSE PasswordHash IN JSON?
// The `json:"-"` tag keeps the hash out of any serialized output, including the
// template context if someone ever dumps it for debugging.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	GitHubID     int64     `json:"githubId"  db:"github_id"` // 0 when the account never used GitHub
	Email        string    `json:"email"     db:"email"`
	AvatarURL    string    `json:"avatarUrl" db:"avatar_url"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// HasPassword reports whether the account can sign in with the login form.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
