package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gardenledger/internal/domain"
)

// LedgerRepository stores committed journals and account balances.
type LedgerRepository interface {
	// Balances returns a copy of every stored balance.
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)
	// Journals returns committed journals, most recent first.
	Journals(ctx context.Context) ([]*domain.Journal, error)
	CountJournals(ctx context.Context) (int64, error)
	// RecentEntries returns committed entries for account, newest first.
	RecentEntries(ctx context.Context, account string, limit int) ([]domain.Entry, error)
	// AppendJournal atomically stamps journal.ID with the next journal
	// number, stores the journal and applies its entries to the balances.
	// It returns the balances after the update.
	AppendJournal(ctx context.Context, journal *domain.Journal) (map[string]decimal.Decimal, error)
	// Replace swaps stored state wholesale. A nil argument keeps that section.
	Replace(ctx context.Context, journals []*domain.Journal, balances map[string]decimal.Decimal) error
	Ping(ctx context.Context) error
}

// DraftStore keeps open journals between requests.
type DraftStore interface {
	Save(ctx context.Context, journal *domain.Journal, ttl time.Duration) error
	// Get returns domain.ErrJournalNotFound for unknown or expired drafts.
	Get(ctx context.Context, draftID string) (*domain.Journal, error)
	Delete(ctx context.Context, draftID string) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so a failed request can be retried.
	Release(ctx context.Context, key string) error
}

// MetricsRecorder receives ledger events for instrumentation.
type MetricsRecorder interface {
	JournalOpened()
	EntryAdded(kind domain.EntryKind)
	JournalCommitted(entries int, duration time.Duration)
	JournalRejected(reason string)
	JournalDiscarded()
	SnapshotImported()
	SetBalance(account string, classification domain.Classification, balance decimal.Decimal)
}

type nopMetrics struct{}

func (nopMetrics) JournalOpened()                                            {}
func (nopMetrics) EntryAdded(domain.EntryKind)                               {}
func (nopMetrics) JournalCommitted(int, time.Duration)                       {}
func (nopMetrics) JournalRejected(string)                                    {}
func (nopMetrics) JournalDiscarded()                                         {}
func (nopMetrics) SnapshotImported()                                         {}
func (nopMetrics) SetBalance(string, domain.Classification, decimal.Decimal) {}
