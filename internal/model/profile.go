package model

import "time"

// Profile is the per-user record that owns subscriptions.
//
// Every User has exactly one Profile, created in the same transaction as the
// user row. Subscriptions are directed: A subscribing to B says nothing about
// B subscribing to A.
type Profile struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Username  string    `json:"username"  db:"-"` // joined from users, read-only
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
