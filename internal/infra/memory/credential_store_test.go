package memory

import (
	"context"
	"testing"

	"readnex-service/internal/domain"
)

func TestCredentialStoreLifecycle(t *testing.T) {
	store := NewCredentialStore()
	ctx := context.Background()

	creds, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if creds.Complete() {
		t.Fatalf("expected empty store to load as incomplete group")
	}

	saved := domain.Credentials{
		AccessToken:  "a1",
		RefreshToken: "r1",
		User:         &domain.User{ID: 1, Email: "reader@example.com"},
	}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	creds, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !creds.Complete() || creds.AccessToken != "a1" || creds.User.Email != "reader@example.com" {
		t.Fatalf("expected saved group back, got %+v", creds)
	}

	// Loaded copies are isolated from the store.
	creds.User.Email = "tampered@example.com"
	again, _ := store.Load(ctx)
	if again.User.Email != "reader@example.com" {
		t.Fatalf("expected store unaffected by caller mutation, got %q", again.User.Email)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	creds, _ = store.Load(ctx)
	if creds.AccessToken != "" || creds.RefreshToken != "" || creds.User != nil {
		t.Fatalf("expected all keys gone after clear, got %+v", creds)
	}
}

func TestAttemptStoreLookups(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()

	_ = store.SaveAttempt(ctx, domain.QuizAttempt{ID: "a1", UserID: "u1", BookID: "b1", Score: 4})
	_ = store.SaveAttempt(ctx, domain.QuizAttempt{ID: "a2", UserID: "u2", BookID: "b1", Score: 2})
	_ = store.SaveAttempt(ctx, domain.QuizAttempt{ID: "a3", UserID: "u1", BookID: "b2", Score: 5})

	mine := store.ByUser("u1")
	if len(mine) != 2 || mine[0].ID != "a1" || mine[1].ID != "a3" {
		t.Fatalf("expected u1's attempts oldest first, got %+v", mine)
	}

	got, err := store.Get("a2")
	if err != nil || got.UserID != "u2" {
		t.Fatalf("expected a2, got %+v err=%v", got, err)
	}
	if _, err := store.Get("nope"); err != domain.ErrAttemptNotFound {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
}
