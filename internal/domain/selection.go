package domain

// SelectionState is the click-cycle state of an account while a journal is open.
type SelectionState int

const (
	SelectionUnselected SelectionState = iota
	SelectionDebit
	SelectionCredit
	SelectionExcluded
)

func (s SelectionState) String() string {
	switch s {
	case SelectionDebit:
		return "debit"
	case SelectionCredit:
		return "credit"
	case SelectionExcluded:
		return "excluded"
	default:
		return "unselected"
	}
}

// Next advances the cycle Unselected -> Debit -> Credit -> Excluded -> Unselected.
func (s SelectionState) Next() SelectionState {
	switch s {
	case SelectionUnselected:
		return SelectionDebit
	case SelectionDebit:
		return SelectionCredit
	case SelectionCredit:
		return SelectionExcluded
	default:
		return SelectionUnselected
	}
}

// EntryKind maps the state to the entry it produces. Unselected and
// Excluded produce none.
func (s SelectionState) EntryKind() (EntryKind, bool) {
	switch s {
	case SelectionDebit:
		return EntryKindDebit, true
	case SelectionCredit:
		return EntryKindCredit, true
	default:
		return "", false
	}
}

// Selection is the single selected account of an open journal.
// At most one account is selected; every other account is Unselected.
type Selection struct {
	Account string
	State   SelectionState
}

// Click applies a click on account and returns the new selection.
func (s Selection) Click(account string) Selection {
	if s.Account != account || s.State == SelectionUnselected {
		return Selection{Account: account, State: SelectionDebit}
	}

	next := s.State.Next()
	if next == SelectionUnselected {
		return Selection{}
	}

	return Selection{Account: account, State: next}
}

// StateOf returns the state shown for account.
func (s Selection) StateOf(account string) SelectionState {
	if s.Account == account {
		return s.State
	}
	return SelectionUnselected
}
