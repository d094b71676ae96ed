package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/model"
)

func TestAnswerListByQuestion_OldestFirst(t *testing.T) {
	db := newTestDB(t)
	asker := createTestUser(t, db, "asker")
	helper := createTestUser(t, db, "helper")
	q := createTestQuestion(t, db, asker, "Q")
	other := createTestQuestion(t, db, asker, "Other")

	first := createTestAnswer(t, db, q, helper, "first")
	second := createTestAnswer(t, db, q, helper, "second")
	createTestAnswer(t, db, other, helper, "elsewhere")

	answers, err := db.Answers().ListByQuestion(context.Background(), q.ID, model.ScopeActive)
	if err != nil {
		t.Fatalf("ListByQuestion() error = %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("ListByQuestion() returned %d answers, want 2", len(answers))
	}
	if answers[0].ID != first.ID || answers[1].ID != second.ID {
		t.Errorf("order = [%s %s], want [%s %s]", answers[0].ID, answers[1].ID, first.ID, second.ID)
	}
	if answers[0].AuthorName != "helper" {
		t.Errorf("AuthorName = %q, want %q", answers[0].AuthorName, "helper")
	}
}

func TestAnswerListByQuestion_Empty(t *testing.T) {
	db := newTestDB(t)
	asker := createTestUser(t, db, "asker")
	q := createTestQuestion(t, db, asker, "Lonely")

	answers, err := db.Answers().ListByQuestion(context.Background(), q.ID, model.ScopeActive)
	if err != nil {
		t.Fatalf("ListByQuestion() error = %v", err)
	}
	if answers == nil || len(answers) != 0 {
		t.Errorf("ListByQuestion() = %v, want empty non-nil slice", answers)
	}
}

func TestAnswerGetOwned(t *testing.T) {
	db := newTestDB(t)
	asker := createTestUser(t, db, "asker")
	helper := createTestUser(t, db, "helper")
	q := createTestQuestion(t, db, asker, "Q")
	a := createTestAnswer(t, db, q, helper, "answer")
	ctx := context.Background()

	if _, err := db.Answers().GetOwned(ctx, a.ID, helper.ID); err != nil {
		t.Errorf("GetOwned(author) error = %v", err)
	}
	// The question's author does not own the answer.
	if _, err := db.Answers().GetOwned(ctx, a.ID, asker.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetOwned(asker) error = %v, want ErrNotFound", err)
	}
}

func TestAnswerUpdate(t *testing.T) {
	db := newTestDB(t)
	asker := createTestUser(t, db, "asker")
	helper := createTestUser(t, db, "helper")
	q := createTestQuestion(t, db, asker, "Q")
	a := createTestAnswer(t, db, q, helper, "draft")
	ctx := context.Background()

	a.Content = "final"
	if err := db.Answers().Update(ctx, a); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	found, err := db.Answers().GetByID(ctx, a.ID, model.ScopeActive)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Content != "final" {
		t.Errorf("Content = %q, want %q", found.Content, "final")
	}
}

// =========================================================================
// LIKE SET TESTS
// =========================================================================

func TestAnswerLikes_SetSemantics(t *testing.T) {
	db := newTestDB(t)
	asker := createTestUser(t, db, "asker")
	helper := createTestUser(t, db, "helper")
	fan := createTestUser(t, db, "fan")
	q := createTestQuestion(t, db, asker, "Q")
	a := createTestAnswer(t, db, q, helper, "liked answer")
	ctx := context.Background()
	answers := db.Answers()

	// Adding the same member twice keeps one entry.
	for i := 0; i < 2; i++ {
		if err := answers.AddLike(ctx, a.ID, fan.ID); err != nil {
			t.Fatalf("AddLike() error = %v", err)
		}
	}
	if err := answers.AddLike(ctx, a.ID, asker.ID); err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}

	found, err := answers.GetByID(ctx, a.ID, model.ScopeActive)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.LikeCount() != 2 {
		t.Errorf("LikeCount() = %d, want 2", found.LikeCount())
	}
	if !found.LikedBy(fan.ID) {
		t.Error("LikedBy(fan) = false, want true")
	}

	liked, err := answers.HasLike(ctx, a.ID, fan.ID)
	if err != nil || !liked {
		t.Errorf("HasLike() = %v, %v; want true, nil", liked, err)
	}

	if err := answers.RemoveLike(ctx, a.ID, fan.ID); err != nil {
		t.Fatalf("RemoveLike() error = %v", err)
	}
	// Removing a non-member is a no-op.
	if err := answers.RemoveLike(ctx, a.ID, fan.ID); err != nil {
		t.Fatalf("second RemoveLike() error = %v", err)
	}

	liked, _ = answers.HasLike(ctx, a.ID, fan.ID)
	if liked {
		t.Error("HasLike() = true after RemoveLike()")
	}

	list, err := answers.ListByQuestion(ctx, q.ID, model.ScopeActive)
	if err != nil {
		t.Fatalf("ListByQuestion() error = %v", err)
	}
	if len(list) != 1 || list[0].LikeCount() != 1 || !list[0].LikedBy(asker.ID) {
		t.Errorf("ListByQuestion() likes = %v, want [%s]", list[0].Likes, asker.ID)
	}
}

// =========================================================================
// SOFT DELETE TESTS
// =========================================================================

func TestAnswerSoftDeleteAndRestore(t *testing.T) {
	db := newTestDB(t)
	asker := createTestUser(t, db, "asker")
	helper := createTestUser(t, db, "helper")
	q := createTestQuestion(t, db, asker, "Q")
	a := createTestAnswer(t, db, q, helper, "to be removed")
	createTestAnswer(t, db, q, helper, "stays")
	ctx := context.Background()

	if err := db.Answers().AddLike(ctx, a.ID, asker.ID); err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}
	if err := db.Answers().SoftDelete(ctx, a.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	active, _ := db.Answers().ListByQuestion(ctx, q.ID, model.ScopeActive)
	if len(active) != 1 {
		t.Errorf("active answers = %d, want 1", len(active))
	}
	all, _ := db.Answers().ListByQuestion(ctx, q.ID, model.ScopeWithDeleted)
	if len(all) != 2 {
		t.Errorf("answers with deleted = %d, want 2", len(all))
	}
	if _, err := db.Answers().GetOwned(ctx, a.ID, helper.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetOwned() on deleted answer error = %v, want ErrNotFound", err)
	}

	if err := db.Answers().Restore(ctx, a.ID); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	restored, err := db.Answers().GetByID(ctx, a.ID, model.ScopeActive)
	if err != nil {
		t.Fatalf("GetByID() after Restore() error = %v", err)
	}
	// Likes survive the round trip.
	if restored.LikeCount() != 1 {
		t.Errorf("LikeCount() after Restore() = %d, want 1", restored.LikeCount())
	}
}

func TestAnswerSurvivesQuestionSoftDelete(t *testing.T) {
	db := newTestDB(t)
	asker := createTestUser(t, db, "asker")
	helper := createTestUser(t, db, "helper")
	q := createTestQuestion(t, db, asker, "Q")
	a := createTestAnswer(t, db, q, helper, "still here")
	ctx := context.Background()

	if err := db.Questions().SoftDelete(ctx, q.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	found, err := db.Answers().GetByID(ctx, a.ID, model.ScopeActive)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.IsDeleted() {
		t.Error("answer was marked deleted along with its question")
	}
}
