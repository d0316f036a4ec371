package model

import "time"

// Post is a blog entry owned by its author.
//
// Public controls whether the post shows up on the anonymous home listing.
// It does NOT hide the post anywhere else: the author's page and the
// subscription feed list private posts too.
type Post struct {
	ID             string    `json:"id"             db:"id"`
	AuthorID       string    `json:"authorId"       db:"author_id"`
	AuthorUsername string    `json:"authorUsername" db:"-"` // joined from users, read-only
	Title          string    `json:"title"          db:"title"`
	Content        string    `json:"content"        db:"content"`
	Public         bool      `json:"public"         db:"public"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}

// IsAuthoredBy reports whether userID owns the post.
func (p *Post) IsAuthoredBy(userID string) bool {
	return userID != "" && p.AuthorID == userID
}
