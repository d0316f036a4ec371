package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// createTestPost creates a post at a fixed offset from a base time so that
// ordering assertions don't depend on clock resolution.
func createTestPost(t *testing.T, db *DB, author *model.User, title string, public bool, age time.Duration) *model.Post {
	t.Helper()
	post := &model.Post{
		AuthorID:  author.ID,
		Title:     title,
		Content:   "body of " + title,
		Public:    public,
		CreatedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Add(-age),
	}
	if err := db.Posts().Create(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return post
}

func titles(posts []model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =========================================================================
// CREATE / GET TESTS
// =========================================================================

func TestPostCreate_VerifyPersistence(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	original := createTestPost(t, db, alice, "Hello", true, 0)

	if original.ID == "" {
		t.Fatal("Create() did not set post.ID")
	}

	found, err := db.Posts().GetByID(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Title != "Hello" {
		t.Errorf("Title = %q, want %q", found.Title, "Hello")
	}
	if found.AuthorUsername != "alice" {
		t.Errorf("AuthorUsername = %q, want %q", found.AuthorUsername, "alice")
	}
	if !found.Public {
		t.Error("Public = false, want true")
	}
	if !found.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, original.CreatedAt)
	}
}

func TestPostCreate_PrivateFlagPersists(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, "secret", false, 0)

	found, err := db.Posts().GetByID(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Public {
		t.Error("Public = true, want false")
	}
}

func TestPostCreate_UnknownAuthorFails(t *testing.T) {
	db := newTestDB(t)

	err := db.Posts().Create(context.Background(), &model.Post{AuthorID: "ghost", Title: "x", Content: "y"})
	if err == nil {
		t.Fatal("Create() should fail the author foreign key")
	}
}

func TestPostGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Posts().GetByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListPublic_OnlyPublicNewestFirst(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	createTestPost(t, db, alice, "old public", true, 3*time.Hour)
	createTestPost(t, db, alice, "private", false, 2*time.Hour)
	createTestPost(t, db, bob, "new public", true, 1*time.Hour)

	posts, err := db.Posts().ListPublic(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListPublic() error = %v", err)
	}

	want := []string{"new public", "old public"}
	if got := titles(posts); !equalStrings(got, want) {
		t.Errorf("ListPublic() = %v, want %v", got, want)
	}
}

func TestListPublic_Empty(t *testing.T) {
	db := newTestDB(t)

	posts, err := db.Posts().ListPublic(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListPublic() error = %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("ListPublic() = %v, want empty non-nil slice", posts)
	}
}

func TestListPublic_Pagination(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	for i := 0; i < 5; i++ {
		createTestPost(t, db, alice, "post", true, time.Duration(i)*time.Minute)
	}

	page1, err := db.Posts().ListPublic(context.Background(), repository.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListPublic() page 1 error = %v", err)
	}
	page3, err := db.Posts().ListPublic(context.Background(), repository.ListOptions{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("ListPublic() page 3 error = %v", err)
	}
	if len(page1) != 2 || len(page3) != 1 {
		t.Errorf("page sizes = %d, %d, want 2, 1", len(page1), len(page3))
	}
}

func TestListByAuthor_IncludesPrivate(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	createTestPost(t, db, alice, "a public", true, 2*time.Hour)
	createTestPost(t, db, alice, "a private", false, 1*time.Hour)
	createTestPost(t, db, bob, "b public", true, 0)

	posts, err := db.Posts().ListByAuthor(context.Background(), alice.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListByAuthor() error = %v", err)
	}

	want := []string{"a private", "a public"}
	if got := titles(posts); !equalStrings(got, want) {
		t.Errorf("ListByAuthor() = %v, want %v", got, want)
	}
}

func TestListForSubscriber_DirectSubscriptionsOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	createTestPost(t, db, alice, "alice private", false, 2*time.Hour)
	createTestPost(t, db, alice, "alice public", true, 1*time.Hour)
	createTestPost(t, db, carol, "carol post", true, 0)
	createTestPost(t, db, bob, "bob post", true, 0)

	// bob -> alice -> carol: bob must not see carol (no transitive inclusion).
	bobP, aliceP, carolP := profileOf(t, db, bob), profileOf(t, db, alice), profileOf(t, db, carol)
	if err := db.Profiles().Subscribe(ctx, bobP.ID, aliceP.ID); err != nil {
		t.Fatal(err)
	}
	if err := db.Profiles().Subscribe(ctx, aliceP.ID, carolP.ID); err != nil {
		t.Fatal(err)
	}

	posts, err := db.Posts().ListForSubscriber(ctx, bobP.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListForSubscriber() error = %v", err)
	}

	want := []string{"alice public", "alice private"}
	if got := titles(posts); !equalStrings(got, want) {
		t.Errorf("ListForSubscriber() = %v, want %v", got, want)
	}
}

func TestListForSubscriber_NoSubscriptions(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	createTestPost(t, db, alice, "lonely", true, 0)

	posts, err := db.Posts().ListForSubscriber(context.Background(), profileOf(t, db, alice).ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListForSubscriber() error = %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("ListForSubscriber() = %v, want none", titles(posts))
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestPostUpdate(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, "draft", false, 0)

	post.Title = "final"
	post.Content = "edited"
	post.Public = true
	if err := db.Posts().Update(context.Background(), post); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.Posts().GetByID(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("GetByID() after update error = %v", err)
	}
	if found.Title != "final" || found.Content != "edited" || !found.Public {
		t.Errorf("after Update() got %+v", found)
	}
	if found.AuthorID != alice.ID {
		t.Errorf("AuthorID changed to %q", found.AuthorID)
	}
}

func TestPostUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Posts().Update(context.Background(), &model.Post{ID: "nonexistent", Title: "t", Content: "c"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestPostDelete_CascadesComments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, "doomed", true, 0)

	if err := db.Comments().Create(ctx, &model.Comment{PostID: post.ID, AuthorID: alice.ID, Content: "hi"}); err != nil {
		t.Fatalf("Create comment error = %v", err)
	}

	if err := db.Posts().Delete(ctx, post.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := db.Posts().GetByID(ctx, post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = ?`, post.ID).Scan(&count); err != nil {
		t.Fatalf("counting comments: %v", err)
	}
	if count != 0 {
		t.Errorf("%d comments survived the post delete, want 0", count)
	}
}

func TestPostDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Posts().Delete(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
