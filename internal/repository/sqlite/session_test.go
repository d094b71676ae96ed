package sqlite

import (
	"context"
	"testing"
	"time"
)

func TestSessionStore_CommitFindDelete(t *testing.T) {
	db := newTestDB(t)
	store := db.Sessions()
	ctx := context.Background()

	if err := store.CommitCtx(ctx, "tok", []byte("one"), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CommitCtx() error = %v", err)
	}
	// Committing the same token replaces the data.
	if err := store.CommitCtx(ctx, "tok", []byte("two"), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second CommitCtx() error = %v", err)
	}

	data, found, err := store.FindCtx(ctx, "tok")
	if err != nil {
		t.Fatalf("FindCtx() error = %v", err)
	}
	if !found || string(data) != "two" {
		t.Errorf("FindCtx() = %q, %v; want %q, true", data, found, "two")
	}

	if err := store.DeleteCtx(ctx, "tok"); err != nil {
		t.Fatalf("DeleteCtx() error = %v", err)
	}
	if _, found, _ := store.FindCtx(ctx, "tok"); found {
		t.Error("FindCtx() found a deleted session")
	}

	// Deleting an unknown token is fine.
	if err := store.Delete("never-existed"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestSessionStore_Expired(t *testing.T) {
	db := newTestDB(t)
	store := db.Sessions()
	ctx := context.Background()

	if err := store.Commit("old", []byte("x"), time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := store.Commit("fresh", []byte("y"), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if _, found, _ := store.Find("old"); found {
		t.Error("Find() returned an expired session")
	}

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpired() = %d, want 1", n)
	}
	if _, found, _ := store.Find("fresh"); !found {
		t.Error("DeleteExpired() removed a live session")
	}
}
