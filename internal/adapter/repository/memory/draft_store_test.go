package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gardenledger/internal/domain"
)

func TestDraftStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewDraftStore()

	j := domain.NewJournal(1, time.Now())
	j.DraftID = "draft-1"

	if err := store.Save(ctx, j, time.Minute); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	j.Entries = append(j.Entries, domain.Entry{Account: "Cash", Kind: domain.EntryKindDebit, Amount: decimal.NewFromInt(1)})

	got, err := store.Get(ctx, "draft-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Entries) != 0 {
		t.Fatalf("expected stored draft to have no entries, got %d", len(got.Entries))
	}

	if err := store.Delete(ctx, "draft-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := store.Get(ctx, "draft-1"); !errors.Is(err, domain.ErrJournalNotFound) {
		t.Fatalf("expected ErrJournalNotFound, got %v", err)
	}
}

func TestDraftStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewDraftStore()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	j := domain.NewJournal(1, now)
	j.DraftID = "draft-1"
	if err := store.Save(ctx, j, time.Minute); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	now = now.Add(2 * time.Minute)

	if _, err := store.Get(ctx, "draft-1"); !errors.Is(err, domain.ErrJournalNotFound) {
		t.Fatalf("expected expired draft to be gone, got %v", err)
	}
}

func TestDraftStore_SweepRemovesAbandonedDrafts(t *testing.T) {
	ctx := context.Background()
	store := NewDraftStore()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		j := domain.NewJournal(1, now)
		j.DraftID = fmt.Sprintf("draft-%d", i)
		if err := store.Save(ctx, j, time.Minute); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	keep := domain.NewJournal(1, now)
	keep.DraftID = "long-lived"
	if err := store.Save(ctx, keep, 72*time.Hour); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	now = now.Add(48 * time.Hour)

	if n := store.Sweep(); n != 1000 {
		t.Fatalf("expected 1000 drafts swept, got %d", n)
	}
	if n := store.Len(); n != 1 {
		t.Fatalf("expected 1 draft left, got %d", n)
	}
	if _, err := store.Get(ctx, "long-lived"); err != nil {
		t.Fatalf("unexpired draft was swept: %v", err)
	}
}

func TestDraftStore_SaveSweepsExpiredDrafts(t *testing.T) {
	ctx := context.Background()
	store := NewDraftStore()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		j := domain.NewJournal(1, now)
		j.DraftID = fmt.Sprintf("draft-%d", i)
		if err := store.Save(ctx, j, time.Minute); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	now = now.Add(48 * time.Hour)

	j := domain.NewJournal(1, now)
	j.DraftID = "fresh"
	if err := store.Save(ctx, j, time.Minute); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if n := store.Len(); n != 1 {
		t.Fatalf("expected only the fresh draft, got %d", n)
	}
}
