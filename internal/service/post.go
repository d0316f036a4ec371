// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses forms, renders pages, sets flash messages
//	Service (Business layer) → validates, enforces ownership, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept plain values and form structs, never *http.Request, and
// return apperror values the handler translates into a re-rendered form, a 404
// page, or a flash message plus redirect.
//
// DEPENDENCY INJECTION:
// PostService takes repository interfaces, NOT *sqlite.DB. Tests pass
// in-memory fakes (see fakes_test.go).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/form"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// Messages shown when someone other than the author tries to change a post.
const (
	MsgNotAuthorizedEdit   = "You are not authorized to edit this post."
	MsgNotAuthorizedDelete = "You are not authorized to delete this post."
)

// PostService handles posts, comments and the listings built from them.
type PostService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:    posts,
		comments: comments,
		users:    users,
		profiles: profiles,
		logger:   logger,
	}
}

// all means "every row": none of the listings are paged.
var all = repository.ListOptions{}

// ListPublic returns every public post, newest first. Private posts never
// appear here.
func (s *PostService) ListPublic(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.ListPublic(ctx, all)
	if err != nil {
		s.logger.Error("failed to list public posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/post: listing public posts: %w", err)
	}
	return posts, nil
}

// Get retrieves a post by its ID.
// Returns apperror.ErrNotFound if the post doesn't exist.
func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	if id == "" {
		return nil, apperror.NotFound("post", id)
	}
	return s.posts.GetByID(ctx, id)
}

// Create validates the form and saves a new post owned by authorID.
func (s *PostService) Create(ctx context.Context, authorID string, f form.Post) (*model.Post, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	post := &model.Post{
		AuthorID: authorID,
		Title:    f.Title,
		Content:  f.Content,
		Public:   f.Public,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("authorID", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("authorID", authorID),
		slog.Bool("public", post.Public),
	)
	return post, nil
}

// GetForEdit returns the post if actorID may edit it.
// Returns apperror.ErrNotFound or apperror.ErrForbidden otherwise.
func (s *PostService) GetForEdit(ctx context.Context, actorID, id string) (*model.Post, error) {
	return s.getOwned(ctx, actorID, id, MsgNotAuthorizedEdit)
}

// GetForDelete is GetForEdit with the delete wording.
func (s *PostService) GetForDelete(ctx context.Context, actorID, id string) (*model.Post, error) {
	return s.getOwned(ctx, actorID, id, MsgNotAuthorizedDelete)
}

func (s *PostService) getOwned(ctx context.Context, actorID, id, denied string) (*model.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsAuthoredBy(actorID) {
		s.logger.Warn("post ownership check failed",
			slog.String("postID", id),
			slog.String("actorID", actorID),
		)
		return nil, apperror.Forbidden(denied)
	}
	return post, nil
}

// Update rewrites title, content and visibility of a post owned by actorID.
//
// ORDER OF CHECKS:
// existence (404) → ownership (flash + redirect) → form validation (re-render).
// A non-author never learns whether their input would have been valid.
func (s *PostService) Update(ctx context.Context, actorID, id string, f form.Post) (*model.Post, error) {
	post, err := s.GetForEdit(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return post, err
	}

	post.Title = f.Title
	post.Content = f.Content
	post.Public = f.Public

	if err := s.posts.Update(ctx, post); err != nil {
		s.logger.Error("failed to update post",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/post: updating post %s: %w", id, err)
	}

	s.logger.Info("post updated", slog.String("id", id))
	return post, nil
}

// Delete removes a post owned by actorID, with its comments.
func (s *PostService) Delete(ctx context.Context, actorID, id string) error {
	if _, err := s.GetForDelete(ctx, actorID, id); err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete post",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/post: deleting post %s: %w", id, err)
	}

	s.logger.Info("post deleted", slog.String("id", id), slog.String("actorID", actorID))
	return nil
}

// ListByUsername returns the author and all of their posts, public and
// private, newest first. Returns apperror.ErrNotFound for an unknown username.
func (s *PostService) ListByUsername(ctx context.Context, username string) (*model.User, []model.Post, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	posts, err := s.posts.ListByAuthor(ctx, author.ID, all)
	if err != nil {
		return nil, nil, fmt.Errorf("service/post: listing posts by %s: %w", username, err)
	}
	return author, posts, nil
}

// Feed returns every post, public or private, by the authors viewerID
// subscribes to, newest first. Only direct subscriptions count.
//
// Returns apperror.ErrMissingProfile if the viewer has no profile row.
func (s *PostService) Feed(ctx context.Context, viewerID string) ([]model.Post, error) {
	profile, err := s.profiles.GetByUserID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.MissingProfile(viewerID)
		}
		return nil, fmt.Errorf("service/post: loading profile of %s: %w", viewerID, err)
	}

	posts, err := s.posts.ListForSubscriber(ctx, profile.ID, all)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing feed of %s: %w", viewerID, err)
	}
	return posts, nil
}

// AddComment attaches a comment by authorID to postID.
//
// The post is looked up first: commenting on a missing post is a 404 even
// when the comment text is also invalid.
func (s *PostService) AddComment(ctx context.Context, authorID, postID string, f form.Comment) (*model.Comment, error) {
	if _, err := s.Get(ctx, postID); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:   postID,
		AuthorID: authorID,
		Content:  f.Content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/post: adding comment to %s: %w", postID, err)
	}

	s.logger.Info("comment added",
		slog.String("id", comment.ID),
		slog.String("postID", postID),
	)
	return comment, nil
}

// ListComments returns the post's comments, oldest first.
func (s *PostService) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing comments of %s: %w", postID, err)
	}
	return comments, nil
}
