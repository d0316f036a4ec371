package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// fakeStore is an in-memory stand-in for the SQLite database. Each repository
// interface gets a thin view over the same store, so a user created through
// fakeUserRepo has a profile fakeProfileRepo can find, just like the real
// schema. Hand-written fakes keep each rule visible in the test file.
type fakeStore struct {
	users     map[string]*model.User    // by ID
	profiles  map[string]*model.Profile // by user ID
	subs      map[[2]string]bool        // (subscriberProfileID, targetProfileID)
	posts     map[string]*model.Post
	comments  []model.Comment
	nextID    int
	clock     time.Time
	failWrite error // non-nil makes every write fail
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*model.User),
		profiles: make(map[string]*model.Profile),
		subs:     make(map[[2]string]bool),
		posts:    make(map[string]*model.Post),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

// tick returns a strictly increasing timestamp so ordering is deterministic.
func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *fakeStore) Users() *fakeUserRepo       { return &fakeUserRepo{s} }
func (s *fakeStore) Profiles() *fakeProfileRepo { return &fakeProfileRepo{s} }
func (s *fakeStore) Posts() *fakePostRepo       { return &fakePostRepo{s} }
func (s *fakeStore) Comments() *fakeCommentRepo { return &fakeCommentRepo{s} }

// addUser creates a user and profile directly, bypassing the service.
func (s *fakeStore) addUser(username string) *model.User {
	u := &model.User{Username: username}
	if err := s.Users().Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- users ---

type fakeUserRepo struct{ s *fakeStore }

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if r.s.failWrite != nil {
		return r.s.failWrite
	}
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", user.Username)
		}
	}
	user.ID = r.s.id("user")
	user.CreatedAt = r.s.tick()
	stored := *user
	r.s.users[user.ID] = &stored
	r.s.profiles[user.ID] = &model.Profile{ID: r.s.id("profile"), UserID: user.ID, Username: user.Username}
	return nil
}

func (r *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	if existing, err := r.GetByGitHubID(ctx, user.GitHubID); err == nil {
		existing.Email = user.Email
		existing.AvatarURL = user.AvatarURL
		r.s.users[existing.ID] = existing
		*user = *existing
		return nil
	}
	return r.Create(ctx, user)
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (r *fakeUserRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	for _, u := range r.s.users {
		if githubID != 0 && u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

// --- profiles ---

type fakeProfileRepo struct{ s *fakeStore }

var _ repository.ProfileRepository = (*fakeProfileRepo)(nil)

func (r *fakeProfileRepo) GetByUserID(_ context.Context, userID string) (*model.Profile, error) {
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, apperror.NotFound("profile", userID)
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProfileRepo) IsSubscribed(_ context.Context, sub, target string) (bool, error) {
	return r.s.subs[[2]string{sub, target}], nil
}

func (r *fakeProfileRepo) Subscribe(_ context.Context, sub, target string) error {
	if r.s.failWrite != nil {
		return r.s.failWrite
	}
	r.s.subs[[2]string{sub, target}] = true
	return nil
}

func (r *fakeProfileRepo) Unsubscribe(_ context.Context, sub, target string) error {
	if r.s.failWrite != nil {
		return r.s.failWrite
	}
	delete(r.s.subs, [2]string{sub, target})
	return nil
}

func (r *fakeProfileRepo) ListSubscriptions(_ context.Context, profileID string) ([]model.Profile, error) {
	out := make([]model.Profile, 0)
	for _, p := range r.s.profiles {
		if r.s.subs[[2]string{profileID, p.ID}] {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// --- posts ---

type fakePostRepo struct{ s *fakeStore }

var _ repository.PostRepository = (*fakePostRepo)(nil)

func (r *fakePostRepo) Create(_ context.Context, post *model.Post) error {
	if r.s.failWrite != nil {
		return r.s.failWrite
	}
	post.ID = r.s.id("post")
	post.CreatedAt = r.s.tick()
	if u, ok := r.s.users[post.AuthorID]; ok {
		post.AuthorUsername = u.Username
	}
	stored := *post
	r.s.posts[post.ID] = &stored
	return nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	p, ok := r.s.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	copied := *p
	return &copied, nil
}

func (r *fakePostRepo) filter(keep func(*model.Post) bool) []model.Post {
	out := make([]model.Post, 0)
	for _, p := range r.s.posts {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakePostRepo) ListPublic(_ context.Context, _ repository.ListOptions) ([]model.Post, error) {
	return r.filter(func(p *model.Post) bool { return p.Public }), nil
}

func (r *fakePostRepo) ListByAuthor(_ context.Context, authorID string, _ repository.ListOptions) ([]model.Post, error) {
	return r.filter(func(p *model.Post) bool { return p.AuthorID == authorID }), nil
}

func (r *fakePostRepo) ListForSubscriber(_ context.Context, profileID string, _ repository.ListOptions) ([]model.Post, error) {
	return r.filter(func(p *model.Post) bool {
		author, ok := r.s.profiles[p.AuthorID]
		return ok && r.s.subs[[2]string{profileID, author.ID}]
	}), nil
}

func (r *fakePostRepo) Update(_ context.Context, post *model.Post) error {
	if r.s.failWrite != nil {
		return r.s.failWrite
	}
	if _, ok := r.s.posts[post.ID]; !ok {
		return apperror.NotFound("post", post.ID)
	}
	stored := *post
	r.s.posts[post.ID] = &stored
	return nil
}

func (r *fakePostRepo) Delete(_ context.Context, id string) error {
	if r.s.failWrite != nil {
		return r.s.failWrite
	}
	if _, ok := r.s.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(r.s.posts, id)
	return nil
}

// --- comments ---

type fakeCommentRepo struct{ s *fakeStore }

var _ repository.CommentRepository = (*fakeCommentRepo)(nil)

func (r *fakeCommentRepo) Create(_ context.Context, c *model.Comment) error {
	if r.s.failWrite != nil {
		return r.s.failWrite
	}
	if _, ok := r.s.posts[c.PostID]; !ok {
		return apperror.NotFound("post", c.PostID)
	}
	c.ID = r.s.id("comment")
	c.CreatedAt = r.s.tick()
	r.s.comments = append(r.s.comments, *c)
	return nil
}

func (r *fakeCommentRepo) ListByPost(_ context.Context, postID string) ([]model.Comment, error) {
	out := make([]model.Comment, 0)
	for _, c := range r.s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}
