// Package repository declares the storage interfaces the service layer depends on.
// Implementations live in sub-packages (see repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/blog/internal/model"
)

// ListOptions pages a listing. A Limit of zero or less means "no limit".
type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	// Create inserts the user and its Profile in one transaction.
	Create(ctx context.Context, user *model.User) error
	// Upsert inserts or refreshes a GitHub-backed user, creating its Profile on first sight.
	Upsert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
}

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	IsSubscribed(ctx context.Context, subscriberID, targetID string) (bool, error)
	Subscribe(ctx context.Context, subscriberID, targetID string) error
	Unsubscribe(ctx context.Context, subscriberID, targetID string) error
	ListSubscriptions(ctx context.Context, profileID string) ([]model.Profile, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	ListPublic(ctx context.Context, opts ListOptions) ([]model.Post, error)
	ListByAuthor(ctx context.Context, authorID string, opts ListOptions) ([]model.Post, error)
	// ListForSubscriber returns posts by every author the profile subscribes to.
	ListForSubscriber(ctx context.Context, profileID string, opts ListOptions) ([]model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	ListByPost(ctx context.Context, postID string) ([]model.Comment, error)
}
