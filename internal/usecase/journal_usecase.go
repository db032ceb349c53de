package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iho/gardenledger/internal/domain"
)

// JournalUseCase keeps open journals as drafts so a remote UI can build a
// journal over several requests.
type JournalUseCase struct {
	mu     sync.Mutex
	ledger *LedgerUseCase
	drafts DraftStore
	idGen  IDGenerator
	ttl    time.Duration
}

// NewJournalUseCase creates a new JournalUseCase. A zero ttl uses DefaultDraftTTL.
func NewJournalUseCase(ledger *LedgerUseCase, drafts DraftStore, idGen IDGenerator, ttl time.Duration) *JournalUseCase {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}

	return &JournalUseCase{
		ledger: ledger,
		drafts: drafts,
		idGen:  idGen,
		ttl:    ttl,
	}
}

// Open starts a new draft journal.
func (uc *JournalUseCase) Open(ctx context.Context) (*domain.Journal, error) {
	journal, err := uc.ledger.OpenJournal(ctx)
	if err != nil {
		return nil, err
	}

	journal.DraftID = uc.idGen.Generate()

	if err := uc.drafts.Save(ctx, journal, uc.ttl); err != nil {
		return nil, err
	}

	return journal, nil
}

// Get returns a draft.
func (uc *JournalUseCase) Get(ctx context.Context, draftID string) (*domain.Journal, error) {
	return uc.drafts.Get(ctx, draftID)
}

// AddEntry appends an entry with an explicit kind.
func (uc *JournalUseCase) AddEntry(ctx context.Context, draftID string, input AddEntryInput) (*domain.Journal, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	journal, err := uc.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}

	if _, err := uc.ledger.AddEntry(ctx, journal, input); err != nil {
		return nil, err
	}

	if err := uc.drafts.Save(ctx, journal, uc.ttl); err != nil {
		return nil, err
	}

	return journal, nil
}

// Select applies a click on account to the draft's selection.
func (uc *JournalUseCase) Select(ctx context.Context, draftID, account string) (*domain.Journal, error) {
	if err := domain.ValidateAccountName(account); err != nil {
		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	journal, err := uc.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}

	journal.Selection = journal.Selection.Click(account)

	if err := uc.drafts.Save(ctx, journal, uc.ttl); err != nil {
		return nil, err
	}

	return journal, nil
}

// AddSelectedEntry appends an entry for the selected account, with the kind
// given by its selection state. amountText is validated like the journal
// panel input.
func (uc *JournalUseCase) AddSelectedEntry(ctx context.Context, draftID, amountText string) (*domain.Journal, error) {
	amount, err := domain.ParseAmount(amountText)
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	journal, err := uc.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}

	kind, ok := journal.Selection.State.EntryKind()
	if !ok || journal.Selection.Account == "" {
		return nil, domain.ErrNoSelection
	}

	if _, err := uc.ledger.AddEntry(ctx, journal, AddEntryInput{
		Account: journal.Selection.Account,
		Kind:    kind,
		Amount:  amount,
	}); err != nil {
		return nil, err
	}

	if err := uc.drafts.Save(ctx, journal, uc.ttl); err != nil {
		return nil, err
	}

	return journal, nil
}

// Commit commits a draft and forgets it. A rejected draft stays stored and
// open. The repository refuses a draft ID it has already stored, so a draft
// left behind by a failed delete cannot be applied twice.
func (uc *JournalUseCase) Commit(ctx context.Context, draftID string) (*CommitResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	journal, err := uc.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}

	result, err := uc.ledger.CommitJournal(ctx, journal)
	if errors.Is(err, domain.ErrJournalNotOpen) {
		if delErr := uc.drafts.Delete(ctx, draftID); delErr != nil {
			uc.ledger.logger.Warn().Err(delErr).Str("draft_id", draftID).Msg("failed to delete stale draft")
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if err := uc.drafts.Delete(ctx, draftID); err != nil {
		uc.ledger.logger.Warn().Err(err).Str("draft_id", draftID).Msg("failed to delete committed draft")
	}

	return result, nil
}

// Discard drops a draft without touching the ledger.
func (uc *JournalUseCase) Discard(ctx context.Context, draftID string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	journal, err := uc.drafts.Get(ctx, draftID)
	if err != nil {
		return err
	}

	if err := uc.ledger.DiscardJournal(ctx, journal); err != nil {
		return err
	}

	return uc.drafts.Delete(ctx, draftID)
}
