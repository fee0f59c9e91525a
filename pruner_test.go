package courserag

import (
	"context"
	"testing"
	"time"

	"github.com/Desarso/courserag/logging"
	"github.com/Desarso/courserag/stores"
)

func TestSessionPrunerRemovesIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := stores.NewMemoryStore(2)
	id, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatal(err)
	}

	pruner := NewSessionPruner(store, time.Hour, logging.Discard())

	removed, err := pruner.Prune(ctx)
	if err != nil || removed != 0 {
		t.Fatalf("fresh session pruned: %d, %v", removed, err)
	}

	pruner.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed, err = pruner.Prune(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("expected idle session pruned, got %d, %v", removed, err)
	}
	if h, _ := store.GetConversationHistory(ctx, id); h != "" {
		t.Errorf("pruned session still has history %q", h)
	}
}

func TestSessionPrunerStart(t *testing.T) {
	pruner := NewSessionPruner(stores.NewMemoryStore(2), time.Hour, logging.Discard())

	if _, err := pruner.Start("not a schedule"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}

	c, err := pruner.Start("0 */15 * * * *")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Stop()
	if len(c.Entries()) != 1 {
		t.Errorf("expected one scheduled entry, got %d", len(c.Entries()))
	}
}
