package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gardenledger/internal/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func newTestRepo(pool pgxmock.PgxPoolIface) *LedgerRepository {
	retrier := NewRetrier(zerolog.Nop(), WithBackoff(time.Millisecond, 2*time.Millisecond, time.Second))

	repo := NewLedgerRepository(pool, retrier)
	repo.now = func() time.Time { return fixedNow }
	return repo
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}

func serializableTx() pgx.TxOptions {
	return pgx.TxOptions{IsoLevel: pgx.Serializable}
}

func testJournal() *domain.Journal {
	committedAt := fixedNow
	return &domain.Journal{
		ID:          99,
		DraftID:     "01HZDRAFT",
		CreatedAt:   fixedNow.Add(-time.Minute),
		CommittedAt: &committedAt,
		Status:      domain.JournalStatusCommitted,
		Entries: []domain.Entry{
			{ID: "e1", Account: "Cash", Kind: domain.EntryKindDebit, Amount: decimal.NewFromInt(50), CreatedAt: fixedNow},
			{ID: "e2", Account: "Revenue", Kind: domain.EntryKindCredit, Amount: decimal.NewFromInt(50), CreatedAt: fixedNow},
		},
	}
}

func TestLedgerRepositoryBalances(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectQuery(q(selectBalancesSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"account", "balance"}).
			AddRow("Cash", "150.25").
			AddRow("Revenue", "-150.25"))

	balances, err := repo.Balances(context.Background())
	require.NoError(t, err)
	assert.True(t, balances["Cash"].Equal(decimal.RequireFromString("150.25")))
	assert.True(t, balances["Revenue"].Equal(decimal.RequireFromString("-150.25")))
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryBalancesInvalidNumber(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectQuery(q(selectBalancesSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"account", "balance"}).AddRow("Cash", "abc"))

	_, err := repo.Balances(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid balance")
}

func TestLedgerRepositoryCountJournals(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectQuery(q(countJournalsSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))

	count, err := repo.CountJournals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryJournals(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectQuery(q(selectJournalsSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"seq", "id", "draft_id", "created_at", "committed_at"}).
			AddRow(int64(12), int64(2), "01HZDRAFT", fixedNow, fixedNow).
			AddRow(int64(11), int64(1), "", fixedNow, fixedNow))
	pool.ExpectQuery(q(selectEntriesSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"journal_seq", "id", "account", "kind", "amount", "created_at"}).
			AddRow(int64(12), "b1", "Cash", "debit", "20", fixedNow).
			AddRow(int64(12), "b2", "Revenue", "credit", "20", fixedNow).
			AddRow(int64(11), "a1", "Cash", "debit", "10", fixedNow))

	journals, err := repo.Journals(context.Background())
	require.NoError(t, err)
	require.Len(t, journals, 2)

	assert.Equal(t, int64(2), journals[0].ID)
	assert.Equal(t, "01HZDRAFT", journals[0].DraftID)
	assert.Equal(t, domain.JournalStatusCommitted, journals[0].Status)
	require.Len(t, journals[0].Entries, 2)
	assert.Equal(t, "b1", journals[0].Entries[0].ID)
	assert.Equal(t, domain.EntryKindCredit, journals[0].Entries[1].Kind)

	assert.Equal(t, int64(1), journals[1].ID)
	require.Len(t, journals[1].Entries, 1)
	assert.True(t, journals[1].Entries[0].Amount.Equal(decimal.NewFromInt(10)))
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryJournalsEmpty(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectQuery(q(selectJournalsSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"seq", "id", "draft_id", "created_at", "committed_at"}))
	pool.ExpectQuery(q(selectEntriesSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"journal_seq", "id", "account", "kind", "amount", "created_at"}))

	journals, err := repo.Journals(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, journals)
	assert.Empty(t, journals)
}

func TestLedgerRepositoryRecentEntries(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectQuery(q(selectRecentEntriesSQL)).
		WithArgs("Cash", 3).
		WillReturnRows(pgxmock.NewRows([]string{"id", "account", "kind", "amount", "created_at"}).
			AddRow("e2", "Cash", "credit", "5", fixedNow).
			AddRow("e1", "Cash", "debit", "100", fixedNow.Add(-time.Hour)))

	entries, err := repo.RecentEntries(context.Background(), "Cash", 3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e2", entries[0].ID)
	assert.Equal(t, domain.EntryKindCredit, entries[0].Kind)
	require.NoError(t, pool.ExpectationsWereMet())
}

func expectAppend(pool pgxmock.PgxPoolIface, count int64) {
	pool.ExpectQuery(q(countJournalsSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(count))
	pool.ExpectQuery(q(insertJournalSQL)).
		WithArgs(count+1, "01HZDRAFT", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(40)))
	pool.ExpectExec(q(insertEntrySQL)).
		WithArgs(int64(40), 0, "e1", "Cash", "debit", "50", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(q(insertEntrySQL)).
		WithArgs(int64(40), 1, "e2", "Revenue", "credit", "50", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(q(applyBalanceSQL)).
		WithArgs("Cash", "50", fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(q(applyBalanceSQL)).
		WithArgs("Revenue", "-50", fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestLedgerRepositoryAppendJournal(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectBeginTx(serializableTx())
	expectAppend(pool, 2)
	pool.ExpectQuery(q(selectBalancesSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"account", "balance"}).
			AddRow("Cash", "50").
			AddRow("Revenue", "-50"))
	pool.ExpectCommit()

	journal := testJournal()
	balances, err := repo.AppendJournal(context.Background(), journal)
	require.NoError(t, err)

	assert.Equal(t, int64(3), journal.ID)
	assert.True(t, balances["Cash"].Equal(decimal.NewFromInt(50)))
	assert.True(t, balances["Revenue"].Equal(decimal.NewFromInt(-50)))
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryAppendJournalRetriesSerializationFailure(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectBeginTx(serializableTx())
	pool.ExpectQuery(q(countJournalsSQL)).
		WillReturnError(&pgconn.PgError{Code: pgErrSerializationFailure})
	pool.ExpectRollback()

	pool.ExpectBeginTx(serializableTx())
	expectAppend(pool, 0)
	pool.ExpectQuery(q(selectBalancesSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"account", "balance"}).
			AddRow("Cash", "50").
			AddRow("Revenue", "-50"))
	pool.ExpectCommit()

	journal := testJournal()
	_, err := repo.AppendJournal(context.Background(), journal)
	require.NoError(t, err)
	assert.Equal(t, int64(1), journal.ID)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryAppendJournalRollsBackOnError(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)
	dbErr := errors.New("insert failed")

	pool.ExpectBeginTx(serializableTx())
	pool.ExpectQuery(q(countJournalsSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	pool.ExpectQuery(q(insertJournalSQL)).
		WithArgs(int64(1), "01HZDRAFT", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(dbErr)
	pool.ExpectRollback()

	journal := testJournal()
	_, err := repo.AppendJournal(context.Background(), journal)
	require.ErrorIs(t, err, dbErr)
	assert.Equal(t, int64(99), journal.ID)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryAppendJournalRejectsCommittedDraft(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectBeginTx(serializableTx())
	pool.ExpectQuery(q(countJournalsSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	pool.ExpectQuery(q(insertJournalSQL)).
		WithArgs(int64(2), "01HZDRAFT", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: draftIDConstraint})
	pool.ExpectRollback()

	journal := testJournal()
	_, err := repo.AppendJournal(context.Background(), journal)
	require.ErrorIs(t, err, domain.ErrJournalNotOpen)
	assert.Equal(t, int64(99), journal.ID)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryAppendJournalOtherUniqueViolation(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectBeginTx(serializableTx())
	pool.ExpectQuery(q(countJournalsSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	pool.ExpectQuery(q(insertJournalSQL)).
		WithArgs(int64(1), "01HZDRAFT", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "journals_pkey"})
	pool.ExpectRollback()

	_, err := repo.AppendJournal(context.Background(), testJournal())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrJournalNotOpen)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryReplace(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	older := &domain.Journal{ID: 1, CreatedAt: fixedNow, Status: domain.JournalStatusCommitted}
	newer := &domain.Journal{ID: 2, CreatedAt: fixedNow, Status: domain.JournalStatusCommitted}

	pool.ExpectBeginTx(serializableTx())
	pool.ExpectExec(q(deleteEntriesSQL)).WillReturnResult(pgxmock.NewResult("DELETE", 3))
	pool.ExpectExec(q(deleteJournalsSQL)).WillReturnResult(pgxmock.NewResult("DELETE", 2))
	pool.ExpectQuery(q(insertJournalSQL)).
		WithArgs(int64(1), "", fixedNow, fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(1)))
	pool.ExpectQuery(q(insertJournalSQL)).
		WithArgs(int64(2), "", fixedNow, fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(2)))
	pool.ExpectExec(q(deleteBalancesSQL)).WillReturnResult(pgxmock.NewResult("DELETE", 13))
	pool.ExpectExec(q(setBalanceSQL)).
		WithArgs("Cash", "10", fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectCommit()

	err := repo.Replace(context.Background(),
		[]*domain.Journal{newer, older},
		map[string]decimal.Decimal{"Cash": decimal.NewFromInt(10)})
	require.NoError(t, err)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryReplaceBalancesOnly(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectBeginTx(serializableTx())
	pool.ExpectExec(q(deleteBalancesSQL)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	pool.ExpectCommit()

	err := repo.Replace(context.Background(), nil, map[string]decimal.Decimal{})
	require.NoError(t, err)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryReplaceNothing(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	require.NoError(t, repo.Replace(context.Background(), nil, nil))
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryEnsureAccounts(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	chart, err := domain.NewChartOfAccounts([]domain.Account{
		{Name: "Cash", Classification: domain.ClassificationAsset},
		{Name: "Loans", Classification: domain.ClassificationLiability},
	})
	require.NoError(t, err)

	pool.ExpectBeginTx(serializableTx())
	pool.ExpectExec(q(ensureAccountSQL)).WithArgs("Cash", fixedNow).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(q(ensureAccountSQL)).WithArgs("Loans", fixedNow).WillReturnResult(pgxmock.NewResult("INSERT", 0))
	pool.ExpectCommit()

	require.NoError(t, repo.EnsureAccounts(context.Background(), chart))
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepositoryPing(t *testing.T) {
	pool := newMockPool(t)
	repo := newTestRepo(pool)

	pool.ExpectPing()
	require.NoError(t, repo.Ping(context.Background()))
	require.NoError(t, pool.ExpectationsWereMet())
}
