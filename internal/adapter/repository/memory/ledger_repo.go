package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/iho/gardenledger/internal/domain"
)

// LedgerRepository implements usecase.LedgerRepository in process memory.
// State lives for the lifetime of the process.
type LedgerRepository struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal
	journals []*domain.Journal // most recent first
	drafts   map[string]struct{}
}

// NewLedgerRepository creates a repository with every chart account at zero.
func NewLedgerRepository(chart *domain.ChartOfAccounts) *LedgerRepository {
	balances := make(map[string]decimal.Decimal)
	if chart != nil {
		for _, a := range chart.Accounts() {
			balances[a.Name] = decimal.Zero
		}
	}

	return &LedgerRepository{
		balances: balances,
		drafts:   make(map[string]struct{}),
	}
}

// Balances returns a copy of the balance mapping.
func (r *LedgerRepository) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return copyBalances(r.balances), nil
}

// Journals returns copies of the committed journals, most recent first.
func (r *LedgerRepository) Journals(ctx context.Context) ([]*domain.Journal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Journal, len(r.journals))
	for i, j := range r.journals {
		out[i] = j.Clone()
	}

	return out, nil
}

// CountJournals returns the number of committed journals.
func (r *LedgerRepository) CountJournals(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.journals)), nil
}

// RecentEntries returns entries for account ordered by time, newest first.
// Entries with equal timestamps keep journal order (most recent journal
// first) and then entry order.
func (r *LedgerRepository) RecentEntries(ctx context.Context, account string, limit int) ([]domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []domain.Entry
	for _, j := range r.journals {
		for _, e := range j.Entries {
			if e.Account == account {
				entries = append(entries, e)
			}
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].CreatedAt.After(entries[b].CreatedAt)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// AppendJournal numbers, stores and applies a journal in one locked step.
// A draft ID that was already committed yields domain.ErrJournalNotOpen.
func (r *LedgerRepository) AppendJournal(ctx context.Context, journal *domain.Journal) (map[string]decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if journal.DraftID != "" {
		if _, ok := r.drafts[journal.DraftID]; ok {
			return nil, fmt.Errorf("%w: draft %s already committed", domain.ErrJournalNotOpen, journal.DraftID)
		}
		r.drafts[journal.DraftID] = struct{}{}
	}

	journal.ID = int64(len(r.journals)) + 1
	r.balances = domain.ApplyEntries(r.balances, journal.Entries)
	r.journals = append([]*domain.Journal{journal.Clone()}, r.journals...)

	return copyBalances(r.balances), nil
}

// Replace swaps the stored sections that are non-nil.
func (r *LedgerRepository) Replace(ctx context.Context, journals []*domain.Journal, balances map[string]decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if journals != nil {
		r.journals = make([]*domain.Journal, len(journals))
		r.drafts = make(map[string]struct{})
		for i, j := range journals {
			r.journals[i] = j.Clone()
			if j.DraftID != "" {
				r.drafts[j.DraftID] = struct{}{}
			}
		}
	}

	if balances != nil {
		r.balances = copyBalances(balances)
	}

	return nil
}

// Ping always succeeds.
func (r *LedgerRepository) Ping(ctx context.Context) error {
	return nil
}

func copyBalances(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
