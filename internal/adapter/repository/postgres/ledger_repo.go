package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/iho/gardenledger/internal/domain"
)

type pgxPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	selectBalancesSQL = `SELECT account, balance::text FROM account_balances ORDER BY account`

	countJournalsSQL = `SELECT COUNT(*) FROM journals`

	selectJournalsSQL = `SELECT seq, id, COALESCE(draft_id, ''), created_at, committed_at FROM journals ORDER BY seq DESC`

	selectEntriesSQL = `SELECT journal_seq, id, account, kind, amount::text, created_at
FROM journal_entries ORDER BY journal_seq DESC, position ASC`

	selectRecentEntriesSQL = `SELECT id, account, kind, amount::text, created_at
FROM journal_entries WHERE account = $1
ORDER BY created_at DESC, journal_seq DESC, position ASC LIMIT $2`

	insertJournalSQL = `INSERT INTO journals (id, draft_id, created_at, committed_at)
VALUES ($1, NULLIF($2, ''), $3, $4) RETURNING seq`

	insertEntrySQL = `INSERT INTO journal_entries (journal_seq, position, id, account, kind, amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)`

	applyBalanceSQL = `INSERT INTO account_balances (account, balance, updated_at) VALUES ($1, $2::numeric, $3)
ON CONFLICT (account) DO UPDATE SET balance = account_balances.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at`

	ensureAccountSQL = `INSERT INTO account_balances (account, balance, updated_at) VALUES ($1, 0, $2)
ON CONFLICT (account) DO NOTHING`

	setBalanceSQL = `INSERT INTO account_balances (account, balance, updated_at) VALUES ($1, $2::numeric, $3)`

	deleteEntriesSQL  = `DELETE FROM journal_entries`
	deleteJournalsSQL = `DELETE FROM journals`
	deleteBalancesSQL = `DELETE FROM account_balances`
)

const (
	pgErrUniqueViolation = "23505"
	draftIDConstraint    = "journals_draft_id_key"
)

// LedgerRepository implements usecase.LedgerRepository on PostgreSQL.
type LedgerRepository struct {
	pool    pgxPool
	retrier *Retrier
	now     func() time.Time
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool pgxPool, retrier *Retrier) *LedgerRepository {
	return &LedgerRepository{
		pool:    pool,
		retrier: retrier,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// EnsureAccounts creates a zero balance row for every chart account that has none.
func (r *LedgerRepository) EnsureAccounts(ctx context.Context, chart *domain.ChartOfAccounts) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		now := r.now()
		for _, a := range chart.Accounts() {
			if _, err := tx.Exec(ctx, ensureAccountSQL, a.Name, now); err != nil {
				return fmt.Errorf("failed to ensure account %q: %w", a.Name, err)
			}
		}
		return nil
	})
}

// Balances returns every stored balance.
func (r *LedgerRepository) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	return queryBalances(ctx, r.pool)
}

// Journals returns committed journals with their entries, most recent first.
func (r *LedgerRepository) Journals(ctx context.Context) ([]*domain.Journal, error) {
	rows, err := r.pool.Query(ctx, selectJournalsSQL)
	if err != nil {
		return nil, err
	}

	var journals []*domain.Journal
	bySeq := make(map[int64]*domain.Journal)

	for rows.Next() {
		var (
			seq         int64
			j           domain.Journal
			committedAt time.Time
		)

		if err := rows.Scan(&seq, &j.ID, &j.DraftID, &j.CreatedAt, &committedAt); err != nil {
			rows.Close()
			return nil, err
		}

		j.Status = domain.JournalStatusCommitted
		j.CommittedAt = &committedAt
		j.Entries = []domain.Entry{}

		journals = append(journals, &j)
		bySeq[seq] = &j
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	entryRows, err := r.pool.Query(ctx, selectEntriesSQL)
	if err != nil {
		return nil, err
	}
	defer entryRows.Close()

	for entryRows.Next() {
		var seq int64

		e, err := scanEntry(entryRows, &seq)
		if err != nil {
			return nil, err
		}

		if j, ok := bySeq[seq]; ok {
			j.Entries = append(j.Entries, e)
		}
	}

	if err := entryRows.Err(); err != nil {
		return nil, err
	}

	if journals == nil {
		journals = []*domain.Journal{}
	}

	return journals, nil
}

// CountJournals returns the number of committed journals.
func (r *LedgerRepository) CountJournals(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, countJournalsSQL).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// RecentEntries returns entries for account, newest first.
func (r *LedgerRepository) RecentEntries(ctx context.Context, account string, limit int) ([]domain.Entry, error) {
	rows, err := r.pool.Query(ctx, selectRecentEntriesSQL, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows, nil)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// AppendJournal stores the journal and applies its deltas in one serializable
// transaction, retried on serialization failures. A draft ID that is already
// stored yields domain.ErrJournalNotOpen and changes nothing.
func (r *LedgerRepository) AppendJournal(ctx context.Context, journal *domain.Journal) (map[string]decimal.Decimal, error) {
	var balances map[string]decimal.Decimal

	err := r.retrier.Retry(ctx, func() error {
		return r.withTx(ctx, func(tx pgx.Tx) error {
			var count int64
			if err := tx.QueryRow(ctx, countJournalsSQL).Scan(&count); err != nil {
				return err
			}

			if _, err := insertJournal(ctx, tx, journal, count+1); err != nil {
				return err
			}

			now := r.now()
			deltas := journal.Deltas()
			accounts := make([]string, 0, len(deltas))
			for account := range deltas {
				accounts = append(accounts, account)
			}
			sort.Strings(accounts)

			for _, account := range accounts {
				if _, err := tx.Exec(ctx, applyBalanceSQL, account, deltas[account].String(), now); err != nil {
					return err
				}
			}

			var err error
			balances, err = queryBalances(ctx, tx)
			if err != nil {
				return err
			}

			journal.ID = count + 1

			return nil
		})
	})
	if err != nil {
		if isDraftConflict(err) {
			return nil, fmt.Errorf("%w: draft %s already committed", domain.ErrJournalNotOpen, journal.DraftID)
		}
		return nil, err
	}

	return balances, nil
}

// Replace swaps the non-nil sections in one transaction.
func (r *LedgerRepository) Replace(ctx context.Context, journals []*domain.Journal, balances map[string]decimal.Decimal) error {
	if journals == nil && balances == nil {
		return nil
	}

	return r.withTx(ctx, func(tx pgx.Tx) error {
		if journals != nil {
			if _, err := tx.Exec(ctx, deleteEntriesSQL); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, deleteJournalsSQL); err != nil {
				return err
			}

			// Stored oldest first so seq order matches commit order.
			for i := len(journals) - 1; i >= 0; i-- {
				if _, err := insertJournal(ctx, tx, journals[i], journals[i].ID); err != nil {
					return err
				}
			}
		}

		if balances != nil {
			if _, err := tx.Exec(ctx, deleteBalancesSQL); err != nil {
				return err
			}

			now := r.now()
			names := make([]string, 0, len(balances))
			for name := range balances {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				if _, err := tx.Exec(ctx, setBalanceSQL, name, balances[name].String(), now); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// Ping checks the connection.
func (r *LedgerRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *LedgerRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

func insertJournal(ctx context.Context, tx pgx.Tx, journal *domain.Journal, id int64) (int64, error) {
	committedAt := journal.CreatedAt
	if journal.CommittedAt != nil {
		committedAt = *journal.CommittedAt
	}

	var seq int64
	if err := tx.QueryRow(ctx, insertJournalSQL, id, journal.DraftID, journal.CreatedAt, committedAt).Scan(&seq); err != nil {
		return 0, err
	}

	for i, e := range journal.Entries {
		if _, err := tx.Exec(ctx, insertEntrySQL, seq, i, e.ID, e.Account, string(e.Kind), e.Amount.String(), e.CreatedAt); err != nil {
			return 0, err
		}
	}

	return seq, nil
}

func isDraftConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgErrUniqueViolation &&
		pgErr.ConstraintName == draftIDConstraint
}

func queryBalances(ctx context.Context, q querier) (map[string]decimal.Decimal, error) {
	rows, err := q.Query(ctx, selectBalancesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var account, text string
		if err := rows.Scan(&account, &text); err != nil {
			return nil, err
		}

		balance, err := decimal.NewFromString(text)
		if err != nil {
			return nil, fmt.Errorf("invalid balance for %q: %w", account, err)
		}

		balances[account] = balance
	}

	return balances, rows.Err()
}

// scanEntry scans an entry row; with seq set the row starts with journal_seq.
func scanEntry(rows pgx.Rows, seq *int64) (domain.Entry, error) {
	var (
		e      domain.Entry
		kind   string
		amount string
	)

	dest := []any{&e.ID, &e.Account, &kind, &amount, &e.CreatedAt}
	if seq != nil {
		dest = append([]any{seq}, dest...)
	}

	if err := rows.Scan(dest...); err != nil {
		return domain.Entry{}, err
	}

	e.Kind = domain.EntryKind(kind)

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("invalid amount for entry %q: %w", e.ID, err)
	}
	e.Amount = d

	return e, nil
}
