package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gardenledger/internal/domain"
)

func testDraft() *domain.Journal {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	j := domain.NewJournal(4, now)
	j.DraftID = "01HZX0DRAFT"
	j.Entries = append(j.Entries, domain.Entry{
		CreatedAt: now,
		ID:        "e1",
		Account:   "Cash Account",
		Kind:      domain.EntryKindDebit,
		Amount:    decimal.RequireFromString("12.34"),
	})
	j.Selection = domain.Selection{Account: "Bank Loan", State: domain.SelectionCredit}
	return j
}

func TestDraftStoreSaveAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewDraftStore(client)
	ctx := context.Background()
	draft := testDraft()

	require.NoError(t, store.Save(ctx, draft, time.Hour))

	got, err := store.Get(ctx, draft.DraftID)
	require.NoError(t, err)

	assert.Equal(t, draft.ID, got.ID)
	assert.Equal(t, draft.DraftID, got.DraftID)
	assert.Equal(t, domain.JournalStatusOpen, got.Status)
	assert.True(t, draft.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "Cash Account", got.Entries[0].Account)
	assert.Equal(t, domain.EntryKindDebit, got.Entries[0].Kind)
	assert.True(t, got.Entries[0].Amount.Equal(decimal.RequireFromString("12.34")))
	assert.Equal(t, draft.Selection, got.Selection)
}

func TestDraftStoreGetMissing(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewDraftStore(client)

	_, err := store.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrJournalNotFound))
}

func TestDraftStoreExpires(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewDraftStore(client)
	ctx := context.Background()
	draft := testDraft()

	require.NoError(t, store.Save(ctx, draft, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, draft.DraftID)
	assert.ErrorIs(t, err, domain.ErrJournalNotFound)
}

func TestDraftStoreDelete(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewDraftStore(client)
	ctx := context.Background()
	draft := testDraft()

	require.NoError(t, store.Save(ctx, draft, time.Hour))
	require.NoError(t, store.Delete(ctx, draft.DraftID))
	require.NoError(t, store.Delete(ctx, draft.DraftID))

	_, err := store.Get(ctx, draft.DraftID)
	assert.ErrorIs(t, err, domain.ErrJournalNotFound)
}

func TestDraftStoreRejectsEmptyID(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewDraftStore(client)
	err := store.Save(context.Background(), domain.NewJournal(1, time.Now()), time.Hour)
	assert.Error(t, err)
}

func TestDraftStoreCorruptValue(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewDraftStore(client)
	require.NoError(t, mr.Set(store.prefix+"bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrJournalNotFound)
}
