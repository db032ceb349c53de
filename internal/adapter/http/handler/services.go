package handler

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/gardenledger/internal/domain"
	"github.com/iho/gardenledger/internal/usecase"
)

// LedgerService is the part of usecase.LedgerUseCase the handlers call.
type LedgerService interface {
	Chart() *domain.ChartOfAccounts
	Strict() bool
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)
	Journals(ctx context.Context) ([]*domain.Journal, error)
	Summary(ctx context.Context) (*usecase.Summary, error)
	RecentEntriesForAccount(ctx context.Context, account string, limit int) ([]domain.Entry, error)
	Export(ctx context.Context) (*domain.Snapshot, error)
	Import(ctx context.Context, snapshot *domain.Snapshot) error
	Reconcile(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// JournalService is the part of usecase.JournalUseCase the handlers call.
type JournalService interface {
	Open(ctx context.Context) (*domain.Journal, error)
	Get(ctx context.Context, draftID string) (*domain.Journal, error)
	AddEntry(ctx context.Context, draftID string, input usecase.AddEntryInput) (*domain.Journal, error)
	AddSelectedEntry(ctx context.Context, draftID, amountText string) (*domain.Journal, error)
	Select(ctx context.Context, draftID, account string) (*domain.Journal, error)
	Commit(ctx context.Context, draftID string) (*usecase.CommitResult, error)
	Discard(ctx context.Context, draftID string) error
}

var (
	_ LedgerService  = (*usecase.LedgerUseCase)(nil)
	_ JournalService = (*usecase.JournalUseCase)(nil)
)
