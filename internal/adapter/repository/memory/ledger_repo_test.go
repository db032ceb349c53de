package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gardenledger/internal/domain"
)

func committedJournal(at time.Time, entries ...domain.Entry) *domain.Journal {
	j := domain.NewJournal(0, at)
	j.Entries = entries
	j.MarkCommitted(at)
	return j
}

func TestLedgerRepository_StartsChartAtZero(t *testing.T) {
	repo := NewLedgerRepository(domain.DefaultChartOfAccounts())

	balances, err := repo.Balances(context.Background())
	require.NoError(t, err)
	assert.Len(t, balances, 13)
	assert.True(t, balances["Cash Account"].IsZero())
}

func TestLedgerRepository_AppendJournal(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(nil)
	now := time.Now()

	j1 := committedJournal(now,
		domain.Entry{Account: "Cash", Kind: domain.EntryKindDebit, Amount: decimal.NewFromInt(100)},
		domain.Entry{Account: "Loan", Kind: domain.EntryKindCredit, Amount: decimal.NewFromInt(100)},
	)
	j1.ID = 42

	balances, err := repo.AppendJournal(ctx, j1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), j1.ID, "journal is renumbered from the stored count")
	assert.True(t, balances["Cash"].Equal(decimal.NewFromInt(100)))
	assert.True(t, balances["Loan"].Equal(decimal.NewFromInt(-100)))

	j2 := committedJournal(now.Add(time.Second),
		domain.Entry{Account: "Cash", Kind: domain.EntryKindCredit, Amount: decimal.NewFromInt(40)},
	)
	_, err = repo.AppendJournal(ctx, j2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), j2.ID)

	journals, err := repo.Journals(ctx)
	require.NoError(t, err)
	require.Len(t, journals, 2)
	assert.Equal(t, int64(2), journals[0].ID, "most recent first")

	count, err := repo.CountJournals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestLedgerRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(nil)

	_, err := repo.AppendJournal(ctx, committedJournal(time.Now(),
		domain.Entry{Account: "Cash", Kind: domain.EntryKindDebit, Amount: decimal.NewFromInt(1)},
	))
	require.NoError(t, err)

	balances, _ := repo.Balances(ctx)
	balances["Cash"] = decimal.NewFromInt(999)

	journals, _ := repo.Journals(ctx)
	journals[0].Entries[0].Account = "Tampered"

	fresh, _ := repo.Balances(ctx)
	assert.True(t, fresh["Cash"].Equal(decimal.NewFromInt(1)))

	freshJournals, _ := repo.Journals(ctx)
	assert.Equal(t, "Cash", freshJournals[0].Entries[0].Account)
}

func TestLedgerRepository_RecentEntries(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		_, err := repo.AppendJournal(ctx, committedJournal(at,
			domain.Entry{ID: string(rune('a' + i)), Account: "Cash", Kind: domain.EntryKindDebit, Amount: decimal.NewFromInt(int64(i + 1)), CreatedAt: at},
			domain.Entry{Account: "Loan", Kind: domain.EntryKindCredit, Amount: decimal.NewFromInt(int64(i + 1)), CreatedAt: at},
		))
		require.NoError(t, err)
	}

	entries, err := repo.RecentEntries(ctx, "Cash", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "d", entries[0].ID)
	assert.Equal(t, "c", entries[1].ID)
	assert.Equal(t, "b", entries[2].ID)

	none, err := repo.RecentEntries(ctx, "Mortgage", 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLedgerRepository_Replace(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(nil)

	_, err := repo.AppendJournal(ctx, committedJournal(time.Now(),
		domain.Entry{Account: "Cash", Kind: domain.EntryKindDebit, Amount: decimal.NewFromInt(1)},
	))
	require.NoError(t, err)

	t.Run("nil sections are kept", func(t *testing.T) {
		require.NoError(t, repo.Replace(ctx, nil, nil))

		count, _ := repo.CountJournals(ctx)
		assert.Equal(t, int64(1), count)
	})

	t.Run("balances replaced without touching journals", func(t *testing.T) {
		require.NoError(t, repo.Replace(ctx, nil, map[string]decimal.Decimal{"Cash": decimal.NewFromInt(500)}))

		balances, _ := repo.Balances(ctx)
		assert.Len(t, balances, 1)
		assert.True(t, balances["Cash"].Equal(decimal.NewFromInt(500)))

		count, _ := repo.CountJournals(ctx)
		assert.Equal(t, int64(1), count)
	})

	t.Run("empty journals replace", func(t *testing.T) {
		require.NoError(t, repo.Replace(ctx, []*domain.Journal{}, nil))

		count, _ := repo.CountJournals(ctx)
		assert.Zero(t, count)
	})
}

func TestLedgerRepository_DraftCommitsOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(nil)
	now := time.Now()

	draft := func() *domain.Journal {
		j := committedJournal(now,
			domain.Entry{Account: "Cash", Kind: domain.EntryKindDebit, Amount: decimal.NewFromInt(100)},
			domain.Entry{Account: "Loan", Kind: domain.EntryKindCredit, Amount: decimal.NewFromInt(100)},
		)
		j.DraftID = "draft-1"
		return j
	}

	_, err := repo.AppendJournal(ctx, draft())
	require.NoError(t, err)

	_, err = repo.AppendJournal(ctx, draft())
	require.ErrorIs(t, err, domain.ErrJournalNotOpen)

	balances, _ := repo.Balances(ctx)
	assert.True(t, balances["Cash"].Equal(decimal.NewFromInt(100)))
	count, _ := repo.CountJournals(ctx)
	assert.Equal(t, int64(1), count)

	// Journals without a draft ID are never deduplicated.
	for i := 0; i < 2; i++ {
		_, err = repo.AppendJournal(ctx, committedJournal(now,
			domain.Entry{Account: "Cash", Kind: domain.EntryKindDebit, Amount: decimal.NewFromInt(1)},
		))
		require.NoError(t, err)
	}

	require.NoError(t, repo.Replace(ctx, []*domain.Journal{}, nil))
	_, err = repo.AppendJournal(ctx, draft())
	require.NoError(t, err, "replacing journals forgets committed drafts")
}
