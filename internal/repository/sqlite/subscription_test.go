package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/repository"
)

func TestSubscriptions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	reader := createTestUser(t, db, "reader")
	chef := createTestUser(t, db, "chef")
	baker := createTestUser(t, db, "baker")

	for _, author := range []string{chef.ID, baker.ID} {
		if err := db.AddSubscription(ctx, reader.ID, author); err != nil {
			t.Fatalf("AddSubscription() error = %v", err)
		}
	}

	if err := db.AddSubscription(ctx, reader.ID, chef.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate AddSubscription() error = %v, want ErrConflict", err)
	}

	subscribed, err := db.IsSubscribed(ctx, reader.ID, chef.ID)
	if err != nil || !subscribed {
		t.Errorf("IsSubscribed() = %v, %v", subscribed, err)
	}
	subscribed, _ = db.IsSubscribed(ctx, chef.ID, reader.ID)
	if subscribed {
		t.Error("subscriptions must be directional")
	}

	authors, total, err := db.ListSubscribedAuthors(ctx, reader.ID, repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListSubscribedAuthors() error = %v", err)
	}
	if total != 2 || len(authors) != 2 {
		t.Errorf("ListSubscribedAuthors() = %d authors, total %d", len(authors), total)
	}

	if err := db.RemoveSubscription(ctx, reader.ID, chef.ID); err != nil {
		t.Fatalf("RemoveSubscription() error = %v", err)
	}
	if err := db.RemoveSubscription(ctx, reader.ID, chef.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second RemoveSubscription() error = %v, want ErrNotFound", err)
	}
}

func TestAddSubscription_UnknownAuthor(t *testing.T) {
	db := newTestDB(t)
	reader := createTestUser(t, db, "reader")

	err := db.AddSubscription(context.Background(), reader.ID, "ghost")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("AddSubscription() error = %v, want ErrNotFound", err)
	}
}
