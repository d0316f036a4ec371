package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

var _ repository.PostRepository = (*PostDB)(nil)

// PostDB stores posts. Every read joins users so templates can show the
// author's username without a second query per row.
type PostDB struct {
	conn *sql.DB
}

// selectPosts is the shared projection. Listing queries append WHERE/ORDER BY.
//
// ORDERING:
// created_at DESC is the user-visible order; id DESC breaks ties between posts
// created within the same timestamp (xid values grow with time).
const selectPosts = `
	SELECT p.id, p.author_id, u.username, p.title, p.content, p.public, p.created_at, p.updated_at
	FROM posts p
	JOIN users u ON u.id = p.author_id`

const newestFirst = ` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`

// Create inserts a new post. ID and timestamps are filled in on the caller's
// struct. A non-zero CreatedAt is kept, which lets imports and tests backdate posts.
func (p *PostDB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()

	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	_, err := p.conn.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, title, content, public, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.AuthorID,
		post.Title,
		post.Content,
		post.Public,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}
	return nil
}

// GetByID retrieves a single post by its ID.
// Returns apperror.ErrNotFound if the post doesn't exist.
func (p *PostDB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	err := p.conn.QueryRowContext(ctx, selectPosts+` WHERE p.id = ?`, id).Scan(
		&post.ID,
		&post.AuthorID,
		&post.AuthorUsername,
		&post.Title,
		&post.Content,
		&post.Public,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return &post, nil
}

// ListPublic returns public posts only, newest first.
func (p *PostDB) ListPublic(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit, offset := limitOffset(opts.Limit, opts.Offset)
	return p.list(ctx, "public posts",
		selectPosts+` WHERE p.public = 1`+newestFirst,
		limit, offset)
}

// ListByAuthor returns every post by authorID regardless of visibility.
func (p *PostDB) ListByAuthor(ctx context.Context, authorID string, opts repository.ListOptions) ([]model.Post, error) {
	limit, offset := limitOffset(opts.Limit, opts.Offset)
	return p.list(ctx, "posts by "+authorID,
		selectPosts+` WHERE p.author_id = ?`+newestFirst,
		authorID, limit, offset)
}

// ListForSubscriber returns every post (regardless of visibility) whose author's
// profile is directly in profileID's subscription set.
func (p *PostDB) ListForSubscriber(ctx context.Context, profileID string, opts repository.ListOptions) ([]model.Post, error) {
	limit, offset := limitOffset(opts.Limit, opts.Offset)
	return p.list(ctx, "feed of "+profileID,
		selectPosts+`
		JOIN profiles pr ON pr.user_id = p.author_id
		JOIN subscriptions s ON s.target_id = pr.id
		WHERE s.subscriber_id = ?`+newestFirst,
		profileID, limit, offset)
}

func (p *PostDB) list(ctx context.Context, what, query string, args ...any) ([]model.Post, error) {
	rows, err := p.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", what, err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		var post model.Post
		if err := rows.Scan(
			&post.ID, &post.AuthorID, &post.AuthorUsername,
			&post.Title, &post.Content, &post.Public,
			&post.CreatedAt, &post.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", what, err)
	}
	return posts, nil
}

// Update writes title, content and visibility. author_id and created_at are
// immutable.
func (p *PostDB) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()

	result, err := p.conn.ExecContext(ctx,
		`UPDATE posts
		 SET title = ?, content = ?, public = ?, updated_at = ?
		 WHERE id = ?`,
		post.Title,
		post.Content,
		post.Public,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", post.ID)
	}
	return nil
}

// Delete removes a post; its comments go with it (ON DELETE CASCADE).
func (p *PostDB) Delete(ctx context.Context, id string) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}
