package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotVersion is written into every export and carried through import unchecked.
const SnapshotVersion = "1.0"

// Snapshot is the exported state of a ledger.
//
// On import a nil Journals or Balances keeps the current value of that
// section; an empty non-nil value replaces it with empty.
type Snapshot struct {
	ExportDate time.Time
	Balances   map[string]decimal.Decimal
	Version    string
	Journals   []*Journal
}
