package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalStatus is the lifecycle state of a journal.
type JournalStatus string

const (
	JournalStatusOpen      JournalStatus = "open"
	JournalStatusCommitted JournalStatus = "committed"
)

// BalanceTolerance is the absolute debit/credit difference below which a
// journal counts as balanced.
var BalanceTolerance = decimal.RequireFromString("0.01")

// Journal is an ordered batch of entries committed together.
type Journal struct {
	CreatedAt   time.Time
	CommittedAt *time.Time
	DraftID     string
	Status      JournalStatus
	Entries     []Entry
	Selection   Selection
	ID          int64
}

// NewJournal creates an open journal with no entries.
func NewJournal(id int64, now time.Time) *Journal {
	return &Journal{
		ID:        id,
		CreatedAt: now,
		Status:    JournalStatusOpen,
		Entries:   []Entry{},
	}
}

// IsOpen reports whether entries may still be appended.
func (j *Journal) IsOpen() bool {
	return j.Status == JournalStatusOpen
}

// Append adds an entry to an open journal.
func (j *Journal) Append(e Entry) error {
	if !j.IsOpen() {
		return ErrJournalNotOpen
	}

	j.Entries = append(j.Entries, e)
	return nil
}

// TotalDebits sums the amounts of debit entries.
func (j *Journal) TotalDebits() decimal.Decimal {
	return sumKind(j.Entries, EntryKindDebit)
}

// TotalCredits sums the amounts of credit entries.
func (j *Journal) TotalCredits() decimal.Decimal {
	return sumKind(j.Entries, EntryKindCredit)
}

// Net returns debits minus credits.
func (j *Journal) Net() decimal.Decimal {
	return j.TotalDebits().Sub(j.TotalCredits())
}

// IsBalanced reports |debits - credits| < BalanceTolerance.
func (j *Journal) IsBalanced() bool {
	return j.Net().Abs().LessThan(BalanceTolerance)
}

// ValidateForCommit checks the Open -> Committed transition.
// With strict set, an unbalanced journal yields a *ValidationError.
func (j *Journal) ValidateForCommit(strict bool) error {
	if !j.IsOpen() {
		return ErrJournalNotOpen
	}

	if len(j.Entries) == 0 {
		return ErrJournalEmpty
	}

	if strict && !j.IsBalanced() {
		return &ValidationError{Debits: j.TotalDebits(), Credits: j.TotalCredits()}
	}

	return nil
}

// Deltas returns the per-account signed sum of the journal's entries.
func (j *Journal) Deltas() map[string]decimal.Decimal {
	deltas := make(map[string]decimal.Decimal)
	for _, e := range j.Entries {
		deltas[e.Account] = deltas[e.Account].Add(e.Signed())
	}
	return deltas
}

// MarkCommitted moves the journal to its terminal state.
func (j *Journal) MarkCommitted(at time.Time) {
	j.Status = JournalStatusCommitted
	j.CommittedAt = &at
	j.Selection = Selection{}
}

// Clone returns a deep copy, so callers never share the entry slice.
func (j *Journal) Clone() *Journal {
	c := *j
	c.Entries = make([]Entry, len(j.Entries))
	copy(c.Entries, j.Entries)
	if j.CommittedAt != nil {
		at := *j.CommittedAt
		c.CommittedAt = &at
	}
	return &c
}

// ApplyEntries returns a copy of balances with every entry applied in order.
// Accounts missing from balances start at zero.
func ApplyEntries(balances map[string]decimal.Decimal, entries []Entry) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(balances))
	for name, b := range balances {
		out[name] = b
	}

	for _, e := range entries {
		out[e.Account] = out[e.Account].Add(e.Signed())
	}

	return out
}

func sumKind(entries []Entry, kind EntryKind) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Kind == kind {
			total = total.Add(e.Amount)
		}
	}
	return total
}
