package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind is the side of an entry.
type EntryKind string

const (
	EntryKindDebit  EntryKind = "debit"
	EntryKindCredit EntryKind = "credit"
)

// ParseEntryKind parses "debit" or "credit", case-insensitively.
func ParseEntryKind(s string) (EntryKind, error) {
	switch EntryKind(strings.ToLower(strings.TrimSpace(s))) {
	case EntryKindDebit:
		return EntryKindDebit, nil
	case EntryKindCredit:
		return EntryKindCredit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryKind, s)
	}
}

// Entry represents a single journal line (debit or credit). Immutable once created.
type Entry struct {
	CreatedAt time.Time
	ID        string
	Account   string
	Kind      EntryKind
	Amount    decimal.Decimal
}

// Signed returns the entry's effect on its account balance:
// +amount for a debit, -amount for a credit.
func (e Entry) Signed() decimal.Decimal {
	if e.Kind == EntryKindDebit {
		return e.Amount
	}
	return e.Amount.Neg()
}
