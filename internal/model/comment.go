package model

import "time"

// Comment is a reader's reply attached to a single Post.
type Comment struct {
	ID             string    `json:"id"             db:"id"`
	PostID         string    `json:"postId"         db:"post_id"`
	AuthorID       string    `json:"authorId"       db:"author_id"`
	AuthorUsername string    `json:"authorUsername" db:"-"`
	Content        string    `json:"content"        db:"content"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
}
