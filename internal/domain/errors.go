package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Account errors
	ErrInvalidAccountName    = errors.New("invalid account name")
	ErrInvalidClassification = errors.New("invalid account classification")
	ErrDuplicateAccount      = errors.New("duplicate account in chart")

	// Entry errors
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidEntryKind = errors.New("entry type must be debit or credit")
	ErrNoSelection      = errors.New("no account selected for debit or credit")

	// Journal errors
	ErrJournalNotOpen     = errors.New("journal is not open")
	ErrJournalEmpty       = errors.New("journal has no entries")
	ErrJournalNotBalanced = errors.New("journal not balanced")
	ErrJournalNotFound    = errors.New("journal not found")

	// Snapshot errors
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// ValidationError is returned when a journal fails the debit/credit check at commit.
// The journal stays open so the caller can correct or discard it.
type ValidationError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: debits %s, credits %s", ErrJournalNotBalanced, e.Debits.StringFixed(2), e.Credits.StringFixed(2))
}

// Is makes errors.Is(err, ErrJournalNotBalanced) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrJournalNotBalanced
}

// Difference returns debits minus credits.
func (e *ValidationError) Difference() decimal.Decimal {
	return e.Debits.Sub(e.Credits)
}
