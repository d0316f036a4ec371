package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
)

func TestCommentCreate_ListedOldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice, "discuss", true, 0)

	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	comments := []*model.Comment{
		{PostID: post.ID, AuthorID: bob.ID, Content: "second", CreatedAt: base.Add(time.Minute)},
		{PostID: post.ID, AuthorID: alice.ID, Content: "first", CreatedAt: base},
	}
	for _, c := range comments {
		if err := db.Comments().Create(ctx, c); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if c.ID == "" {
			t.Fatal("Create() did not set comment.ID")
		}
	}

	got, err := db.Comments().ListByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListByPost() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListByPost() returned %d comments, want 2", len(got))
	}
	if got[0].Content != "first" || got[1].Content != "second" {
		t.Errorf("order = [%s %s], want [first second]", got[0].Content, got[1].Content)
	}
	if got[1].AuthorUsername != "bob" {
		t.Errorf("AuthorUsername = %q, want %q", got[1].AuthorUsername, "bob")
	}
}

func TestCommentCreate_UnknownPost(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	err := db.Comments().Create(context.Background(), &model.Comment{PostID: "gone", AuthorID: alice.ID, Content: "hello?"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Create() error = %v, want ErrNotFound", err)
	}
}

func TestCommentListByPost_Empty(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, "quiet", true, 0)

	got, err := db.Comments().ListByPost(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("ListByPost() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListByPost() = %v, want empty non-nil slice", got)
	}
}
