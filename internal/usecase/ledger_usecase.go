package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gardenledger/internal/domain"
)

// LedgerUseCase is the ledger core: it owns the balance mapping and the
// committed journal list behind a LedgerRepository.
type LedgerUseCase struct {
	mu      sync.Mutex
	repo    LedgerRepository
	chart   *domain.ChartOfAccounts
	idGen   IDGenerator
	metrics MetricsRecorder
	logger  zerolog.Logger
	now     func() time.Time
	strict  bool
}

// LedgerOption configures a LedgerUseCase.
type LedgerOption func(*LedgerUseCase)

// WithLenientCommit disables the debit/credit check: any non-empty open
// journal commits.
func WithLenientCommit() LedgerOption {
	return func(uc *LedgerUseCase) { uc.strict = false }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) LedgerOption {
	return func(uc *LedgerUseCase) { uc.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) LedgerOption {
	return func(uc *LedgerUseCase) { uc.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(uc *LedgerUseCase) { uc.now = now }
}

// NewLedgerUseCase creates a new LedgerUseCase in strict mode.
func NewLedgerUseCase(repo LedgerRepository, chart *domain.ChartOfAccounts, idGen IDGenerator, opts ...LedgerOption) *LedgerUseCase {
	uc := &LedgerUseCase{
		repo:    repo,
		chart:   chart,
		idGen:   idGen,
		metrics: nopMetrics{},
		logger:  zerolog.Nop(),
		now:     func() time.Time { return time.Now().UTC() },
		strict:  true,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Strict reports whether commits require balanced journals.
func (uc *LedgerUseCase) Strict() bool {
	return uc.strict
}

// Chart returns the configured chart of accounts.
func (uc *LedgerUseCase) Chart() *domain.ChartOfAccounts {
	return uc.chart
}

// OpenJournal creates a new open journal numbered after the committed ones.
// Nothing is stored until the journal is committed.
func (uc *LedgerUseCase) OpenJournal(ctx context.Context) (*domain.Journal, error) {
	count, err := uc.repo.CountJournals(ctx)
	if err != nil {
		return nil, err
	}

	journal := domain.NewJournal(count+1, uc.now())
	uc.metrics.JournalOpened()

	return journal, nil
}

// AddEntryInput represents input for adding an entry to a journal.
type AddEntryInput struct {
	Account string
	Kind    domain.EntryKind
	Amount  decimal.Decimal
}

// AddEntry appends an entry to an open journal. Balances are not touched.
// On error the journal is left exactly as it was.
func (uc *LedgerUseCase) AddEntry(ctx context.Context, journal *domain.Journal, input AddEntryInput) (*domain.Entry, error) {
	if journal == nil || !journal.IsOpen() {
		return nil, domain.ErrJournalNotOpen
	}

	if err := domain.ValidateAccountName(input.Account); err != nil {
		return nil, err
	}

	if input.Kind != domain.EntryKindDebit && input.Kind != domain.EntryKindCredit {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidEntryKind, input.Kind)
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	entry := domain.Entry{
		ID:        uc.idGen.Generate(),
		Account:   input.Account,
		Kind:      input.Kind,
		Amount:    input.Amount,
		CreatedAt: uc.now(),
	}

	if err := journal.Append(entry); err != nil {
		return nil, err
	}

	uc.metrics.EntryAdded(entry.Kind)

	return &entry, nil
}

// CommitResult is the ledger state right after a commit. Journals is nil
// when the list could not be read back; JournalCount is always set.
type CommitResult struct {
	Journal      *domain.Journal
	Balances     map[string]decimal.Decimal
	Journals     []*domain.Journal
	JournalCount int
}

// CommitJournal validates the journal and applies all of its entries in one
// step. On any error, balances, the journal list and the journal itself are
// unchanged, so an unbalanced journal stays open for correction.
func (uc *LedgerUseCase) CommitJournal(ctx context.Context, journal *domain.Journal) (*CommitResult, error) {
	if journal == nil {
		return nil, domain.ErrJournalNotOpen
	}

	if err := journal.ValidateForCommit(uc.strict); err != nil {
		uc.metrics.JournalRejected(rejectReason(err))
		uc.logger.Info().
			Err(err).
			Int64("journal_id", journal.ID).
			Int("entries", len(journal.Entries)).
			Msg("journal commit rejected")

		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	start := time.Now()
	openedAs := journal.ID

	committed := journal.Clone()
	committed.MarkCommitted(uc.now())

	balances, err := uc.repo.AppendJournal(ctx, committed)
	if err != nil {
		if errors.Is(err, domain.ErrJournalNotOpen) {
			uc.metrics.JournalRejected("already_committed")
			uc.logger.Warn().
				Int64("journal_id", openedAs).
				Str("draft_id", journal.DraftID).
				Msg("draft already committed")
			return nil, err
		}

		uc.metrics.JournalRejected("storage")
		return nil, fmt.Errorf("failed to commit journal %d: %w", openedAs, err)
	}

	if committed.ID != openedAs {
		uc.logger.Debug().
			Int64("opened_as", openedAs).
			Int64("committed_as", committed.ID).
			Msg("journal renumbered at commit")
	}

	*journal = *committed.Clone()

	// The journal is stored; a failed read-back does not fail the commit.
	journalCount := int(committed.ID)
	journals, err := uc.repo.Journals(ctx)
	if err != nil {
		uc.logger.Warn().Err(err).Int64("journal_id", committed.ID).Msg("failed to read journals after commit")
		journals = nil
	} else {
		journalCount = len(journals)
	}

	uc.metrics.JournalCommitted(len(committed.Entries), time.Since(start))
	uc.publishBalances(balances, committed.Deltas())

	uc.logger.Info().
		Int64("journal_id", committed.ID).
		Int("entries", len(committed.Entries)).
		Str("debits", committed.TotalDebits().String()).
		Str("credits", committed.TotalCredits().String()).
		Msg("journal committed")

	return &CommitResult{
		Journal:      committed,
		Balances:     balances,
		Journals:     journals,
		JournalCount: journalCount,
	}, nil
}

// DiscardJournal drops an open journal without any effect on the ledger.
func (uc *LedgerUseCase) DiscardJournal(ctx context.Context, journal *domain.Journal) error {
	if journal == nil || !journal.IsOpen() {
		return domain.ErrJournalNotOpen
	}

	uc.metrics.JournalDiscarded()
	uc.logger.Debug().
		Int64("journal_id", journal.ID).
		Int("entries", len(journal.Entries)).
		Msg("journal discarded")

	return nil
}

// Balances returns the current balance of every account that has one.
func (uc *LedgerUseCase) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	return uc.repo.Balances(ctx)
}

// Balance returns one account's balance; unknown accounts are zero.
func (uc *LedgerUseCase) Balance(ctx context.Context, account string) (decimal.Decimal, error) {
	balances, err := uc.repo.Balances(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	return balances[account], nil
}

// Journals returns committed journals, most recent first.
func (uc *LedgerUseCase) Journals(ctx context.Context) ([]*domain.Journal, error) {
	return uc.repo.Journals(ctx)
}

// TotalForClassification sums the balances of the chart's accounts with the
// given classification.
func (uc *LedgerUseCase) TotalForClassification(ctx context.Context, cl domain.Classification) (decimal.Decimal, error) {
	balances, err := uc.repo.Balances(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	return uc.total(balances, cl), nil
}

// NetPosition returns total assets minus total liabilities.
func (uc *LedgerUseCase) NetPosition(ctx context.Context) (decimal.Decimal, error) {
	balances, err := uc.repo.Balances(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	return uc.total(balances, domain.ClassificationAsset).Sub(uc.total(balances, domain.ClassificationLiability)), nil
}

// Summary is the dashboard view of the ledger.
type Summary struct {
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	NetPosition      decimal.Decimal
	JournalCount     int64
}

// Summary computes totals and the journal count from one balance read.
func (uc *LedgerUseCase) Summary(ctx context.Context) (*Summary, error) {
	balances, err := uc.repo.Balances(ctx)
	if err != nil {
		return nil, err
	}

	count, err := uc.repo.CountJournals(ctx)
	if err != nil {
		return nil, err
	}

	assets := uc.total(balances, domain.ClassificationAsset)
	liabilities := uc.total(balances, domain.ClassificationLiability)

	return &Summary{
		TotalAssets:      assets,
		TotalLiabilities: liabilities,
		NetPosition:      assets.Sub(liabilities),
		JournalCount:     count,
	}, nil
}

// RecentEntriesForAccount returns committed entries referencing account,
// newest first. A non-positive limit uses DefaultRecentEntriesLimit.
func (uc *LedgerUseCase) RecentEntriesForAccount(ctx context.Context, account string, limit int) ([]domain.Entry, error) {
	limit = domain.ValidatePagination(limit, DefaultRecentEntriesLimit, MaxRecentEntriesLimit)
	return uc.repo.RecentEntries(ctx, account, limit)
}

// Export captures the committed journals and balances.
func (uc *LedgerUseCase) Export(ctx context.Context) (*domain.Snapshot, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	journals, err := uc.repo.Journals(ctx)
	if err != nil {
		return nil, err
	}

	balances, err := uc.repo.Balances(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.Snapshot{
		Journals:   journals,
		Balances:   balances,
		ExportDate: uc.now(),
		Version:    domain.SnapshotVersion,
	}, nil
}

// Import replaces journals and balances with the snapshot's. Balances are
// trusted as given and not recomputed from the journals; use Reconcile to
// find disagreements.
func (uc *LedgerUseCase) Import(ctx context.Context, snapshot *domain.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: empty document", domain.ErrInvalidSnapshot)
	}

	journals := snapshot.Journals
	if journals != nil {
		journals = make([]*domain.Journal, len(snapshot.Journals))
		for i, j := range snapshot.Journals {
			if j == nil {
				return fmt.Errorf("%w: journal at index %d is null", domain.ErrInvalidSnapshot, i)
			}
			c := j.Clone()
			c.Status = domain.JournalStatusCommitted
			journals[i] = c
		}
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := uc.repo.Replace(ctx, journals, snapshot.Balances); err != nil {
		return err
	}

	uc.metrics.SnapshotImported()

	balances, err := uc.repo.Balances(ctx)
	if err == nil {
		uc.publishBalances(balances, nil)
	}

	uc.logger.Info().
		Int("journals", len(snapshot.Journals)).
		Int("balances", len(snapshot.Balances)).
		Str("version", snapshot.Version).
		Bool("journals_replaced", snapshot.Journals != nil).
		Bool("balances_replaced", snapshot.Balances != nil).
		Msg("snapshot imported")

	return nil
}

// AccountDifference is one account whose stored balance disagrees with the
// balance recomputed from committed journals.
type AccountDifference struct {
	Account    string
	Recorded   decimal.Decimal
	Calculated decimal.Decimal
	Difference decimal.Decimal
}

// ReconciliationReport is the result of Reconcile.
type ReconciliationReport struct {
	CheckedAt   time.Time
	Differences []AccountDifference
	Consistent  bool
}

// Reconcile recomputes balances from the committed journals and reports
// where they disagree with stored balances. It never modifies state.
func (uc *LedgerUseCase) Reconcile(ctx context.Context) (*ReconciliationReport, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	journals, err := uc.repo.Journals(ctx)
	if err != nil {
		return nil, err
	}

	recorded, err := uc.repo.Balances(ctx)
	if err != nil {
		return nil, err
	}

	calculated := map[string]decimal.Decimal{}
	for i := len(journals) - 1; i >= 0; i-- {
		calculated = domain.ApplyEntries(calculated, journals[i].Entries)
	}

	names := make(map[string]struct{}, len(recorded)+len(calculated))
	for name := range recorded {
		names[name] = struct{}{}
	}
	for name := range calculated {
		names[name] = struct{}{}
	}

	report := &ReconciliationReport{CheckedAt: uc.now(), Consistent: true}
	for name := range names {
		r, c := recorded[name], calculated[name]
		if r.Equal(c) {
			continue
		}

		report.Consistent = false
		report.Differences = append(report.Differences, AccountDifference{
			Account:    name,
			Recorded:   r,
			Calculated: c,
			Difference: r.Sub(c),
		})
	}

	sort.Slice(report.Differences, func(i, j int) bool {
		return report.Differences[i].Account < report.Differences[j].Account
	})

	return report, nil
}

// Ping checks the underlying store.
func (uc *LedgerUseCase) Ping(ctx context.Context) error {
	return uc.repo.Ping(ctx)
}

func (uc *LedgerUseCase) total(balances map[string]decimal.Decimal, cl domain.Classification) decimal.Decimal {
	total := decimal.Zero
	for _, name := range uc.chart.Names(cl) {
		total = total.Add(balances[name])
	}
	return total
}

// publishBalances pushes balance gauges. With only set, only those accounts
// are refreshed.
func (uc *LedgerUseCase) publishBalances(balances map[string]decimal.Decimal, only map[string]decimal.Decimal) {
	for name, b := range balances {
		if only != nil {
			if _, ok := only[name]; !ok {
				continue
			}
		}

		cl, ok := uc.chart.Classify(name)
		if !ok {
			continue
		}

		uc.metrics.SetBalance(name, cl, b)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrJournalNotBalanced):
		return "not_balanced"
	case errors.Is(err, domain.ErrJournalEmpty):
		return "empty"
	case errors.Is(err, domain.ErrJournalNotOpen):
		return "not_open"
	default:
		return "other"
	}
}
