package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/model"
	"github.com/sakif/qanda/internal/repository"
)

// =========================================================================
// CREATE + GET TESTS
// =========================================================================

func TestQuestionCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "asker")
	ctx := context.Background()

	q := &model.Question{Title: "How do channels work?", Content: "Explain please.", AuthorID: author.ID}
	if err := db.Questions().Create(ctx, q); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if q.ID == "" {
		t.Fatal("Create() did not set ID")
	}

	found, err := db.Questions().GetByID(ctx, q.ID, model.ScopeActive)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Title != q.Title {
		t.Errorf("Title = %q, want %q", found.Title, q.Title)
	}
	if found.AuthorName != "asker" {
		t.Errorf("AuthorName = %q, want %q", found.AuthorName, "asker")
	}
	if found.IsDeleted() {
		t.Error("new question reports IsDeleted() = true")
	}
}

func TestQuestionGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Questions().GetByID(context.Background(), "missing", model.ScopeActive)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// OWNERSHIP TESTS
// =========================================================================

func TestQuestionGetOwned(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner")
	stranger := createTestUser(t, db, "stranger")
	q := createTestQuestion(t, db, owner, "Mine")
	ctx := context.Background()

	if _, err := db.Questions().GetOwned(ctx, q.ID, owner.ID); err != nil {
		t.Errorf("GetOwned(owner) error = %v", err)
	}

	// Someone else's question must look exactly like a missing one.
	_, err := db.Questions().GetOwned(ctx, q.ID, stranger.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetOwned(stranger) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestQuestionList_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "lister")

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, createTestQuestion(t, db, author, fmt.Sprintf("Question %d", i)).ID)
	}

	questions, err := db.Questions().List(context.Background(), repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("List() returned %d questions, want 3", len(questions))
	}
	for i, q := range questions {
		want := ids[len(ids)-1-i]
		if q.ID != want {
			t.Errorf("questions[%d].ID = %q, want %q", i, q.ID, want)
		}
	}
}

func TestQuestionList_Pagination(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "pager")
	for i := 0; i < 15; i++ {
		createTestQuestion(t, db, author, fmt.Sprintf("Question %d", i))
	}
	ctx := context.Background()

	tests := []struct {
		name   string
		offset int
		want   int
	}{
		{"first page", 0, 10},
		{"second page", 10, 5},
		{"past the end", 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions, err := db.Questions().List(ctx, repository.ListOptions{Limit: 10, Offset: tt.offset})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(questions) != tt.want {
				t.Errorf("List() returned %d questions, want %d", len(questions), tt.want)
			}
		})
	}

	n, err := db.Questions().Count(ctx, repository.ListOptions{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 15 {
		t.Errorf("Count() = %d, want 15", n)
	}
}

func TestQuestionList_FilterByAuthor(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestQuestion(t, db, alice, "A1")
	createTestQuestion(t, db, bob, "B1")
	createTestQuestion(t, db, alice, "A2")

	questions, err := db.Questions().List(context.Background(), repository.ListOptions{AuthorID: alice.ID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("List() returned %d questions, want 2", len(questions))
	}
	for _, q := range questions {
		if q.AuthorID != alice.ID {
			t.Errorf("question %q has AuthorID %q, want %q", q.Title, q.AuthorID, alice.ID)
		}
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestQuestionUpdate(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "editor")
	q := createTestQuestion(t, db, author, "Original")
	ctx := context.Background()

	q.Title = "Edited"
	q.Content = "Edited content"
	if err := db.Questions().Update(ctx, q); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, _ := db.Questions().GetByID(ctx, q.ID, model.ScopeActive)
	if found.Title != "Edited" || found.Content != "Edited content" {
		t.Errorf("after Update() got %q / %q", found.Title, found.Content)
	}
	if !found.UpdatedAt.After(found.CreatedAt) && !found.UpdatedAt.Equal(found.CreatedAt) {
		t.Errorf("UpdatedAt %v is before CreatedAt %v", found.UpdatedAt, found.CreatedAt)
	}
}

// =========================================================================
// SOFT DELETE TESTS
// =========================================================================

func TestQuestionSoftDeleteAndRestore(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "deleter")
	q := createTestQuestion(t, db, author, "Doomed")
	keep := createTestQuestion(t, db, author, "Survivor")
	ctx := context.Background()

	if err := db.Questions().SoftDelete(ctx, q.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	// Hidden from the default scope...
	if _, err := db.Questions().GetByID(ctx, q.ID, model.ScopeActive); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(active) error = %v, want ErrNotFound", err)
	}
	if _, err := db.Questions().GetOwned(ctx, q.ID, author.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetOwned() error = %v, want ErrNotFound", err)
	}

	// ...but the row is still there.
	deleted, err := db.Questions().GetByID(ctx, q.ID, model.ScopeWithDeleted)
	if err != nil {
		t.Fatalf("GetByID(with deleted) error = %v", err)
	}
	if !deleted.IsDeleted() {
		t.Error("IsDeleted() = false after SoftDelete()")
	}

	only, err := db.Questions().List(ctx, repository.ListOptions{Scope: model.ScopeOnlyDeleted})
	if err != nil {
		t.Fatalf("List(only deleted) error = %v", err)
	}
	if len(only) != 1 || only[0].ID != q.ID {
		t.Errorf("List(only deleted) = %v, want just %q", only, q.ID)
	}

	active, _ := db.Questions().List(ctx, repository.ListOptions{})
	if len(active) != 1 || active[0].ID != keep.ID {
		t.Errorf("List(active) = %v, want just %q", active, keep.ID)
	}

	// Deleting twice is NotFound: there is no active row left to delete.
	if err := db.Questions().SoftDelete(ctx, q.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second SoftDelete() error = %v, want ErrNotFound", err)
	}

	if err := db.Questions().Restore(ctx, q.ID); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	restored, err := db.Questions().GetByID(ctx, q.ID, model.ScopeActive)
	if err != nil {
		t.Fatalf("GetByID() after Restore() error = %v", err)
	}
	if restored.IsDeleted() {
		t.Error("IsDeleted() = true after Restore()")
	}

	if err := db.Questions().Restore(ctx, keep.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Restore() on an active question error = %v, want ErrNotFound", err)
	}
}

func TestQuestionUpdate_DeletedIsNotFound(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "ghost")
	q := createTestQuestion(t, db, author, "Gone")
	ctx := context.Background()

	if err := db.Questions().SoftDelete(ctx, q.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	q.Title = "Resurrected?"
	if err := db.Questions().Update(ctx, q); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}
