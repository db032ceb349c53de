package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gardenledger/internal/domain"
	"github.com/iho/gardenledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string           `json:"error"`
	Message string           `json:"message,omitempty"`
	Debits  *decimal.Decimal `json:"debits,omitempty"`
	Credits *decimal.Decimal `json:"credits,omitempty"`
}

// AccountResponse is a chart account with its balance.
type AccountResponse struct {
	Name           string          `json:"name"`
	Classification string          `json:"classification"`
	Balance        decimal.Decimal `json:"balance"`
}

// AccountsFromChart lists the chart in configuration order.
func AccountsFromChart(chart *domain.ChartOfAccounts, balances map[string]decimal.Decimal) []AccountResponse {
	accounts := chart.Accounts()
	result := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountResponse{
			Name:           a.Name,
			Classification: string(a.Classification),
			Balance:        balances[a.Name],
		}
	}
	return result
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID        string          `json:"id"`
	Account   string          `json:"account"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e domain.Entry) EntryResponse {
	return EntryResponse{
		ID:        e.ID,
		Account:   e.Account,
		Type:      string(e.Kind),
		Amount:    e.Amount,
		Timestamp: e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []domain.Entry) []EntryResponse {
	result := make([]EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// SelectionResponse is the selected account of an open journal.
type SelectionResponse struct {
	Account string `json:"account"`
	State   string `json:"state"`
}

// JournalResponse represents a journal, open or committed.
type JournalResponse struct {
	ID           int64              `json:"id"`
	DraftID      string             `json:"draftId,omitempty"`
	Status       string             `json:"status"`
	Timestamp    time.Time          `json:"timestamp"`
	CommittedAt  *time.Time         `json:"committedAt,omitempty"`
	Entries      []EntryResponse    `json:"entries"`
	TotalDebits  decimal.Decimal    `json:"totalDebits"`
	TotalCredits decimal.Decimal    `json:"totalCredits"`
	Balanced     bool               `json:"balanced"`
	Selection    *SelectionResponse `json:"selection,omitempty"`
}

// JournalFromDomain converts a domain journal to a response.
func JournalFromDomain(j *domain.Journal) *JournalResponse {
	resp := &JournalResponse{
		ID:           j.ID,
		DraftID:      j.DraftID,
		Status:       string(j.Status),
		Timestamp:    j.CreatedAt,
		CommittedAt:  j.CommittedAt,
		Entries:      EntriesFromDomain(j.Entries),
		TotalDebits:  j.TotalDebits(),
		TotalCredits: j.TotalCredits(),
		Balanced:     j.IsBalanced(),
	}

	if j.Selection.Account != "" {
		resp.Selection = &SelectionResponse{
			Account: j.Selection.Account,
			State:   j.Selection.State.String(),
		}
	}

	return resp
}

// JournalsFromDomain converts domain journals to responses.
func JournalsFromDomain(journals []*domain.Journal) []*JournalResponse {
	result := make([]*JournalResponse, len(journals))
	for i, j := range journals {
		result[i] = JournalFromDomain(j)
	}
	return result
}

// ListJournalsResponse lists committed journals, most recent first.
type ListJournalsResponse struct {
	Journals []*JournalResponse `json:"journals"`
	Total    int64              `json:"total"`
}

// BalancesResponse maps account names to balances.
type BalancesResponse struct {
	Balances map[string]decimal.Decimal `json:"balances"`
}

// SummaryResponse is the dashboard view.
type SummaryResponse struct {
	TotalAssets      decimal.Decimal `json:"totalAssets"`
	TotalLiabilities decimal.Decimal `json:"totalLiabilities"`
	NetPosition      decimal.Decimal `json:"netPosition"`
	JournalCount     int64           `json:"journalCount"`
	StrictBalance    bool            `json:"strictBalance"`
}

// SummaryFromUseCase converts a summary to a response.
func SummaryFromUseCase(s *usecase.Summary, strict bool) *SummaryResponse {
	return &SummaryResponse{
		TotalAssets:      s.TotalAssets,
		TotalLiabilities: s.TotalLiabilities,
		NetPosition:      s.NetPosition,
		JournalCount:     s.JournalCount,
		StrictBalance:    strict,
	}
}

// CommitResponse is returned by a successful commit.
type CommitResponse struct {
	Journal      *JournalResponse           `json:"journal"`
	Balances     map[string]decimal.Decimal `json:"balances"`
	JournalCount int                        `json:"journalCount"`
}

// CommitFromUseCase converts a commit result to a response.
func CommitFromUseCase(r *usecase.CommitResult) *CommitResponse {
	return &CommitResponse{
		Journal:      JournalFromDomain(r.Journal),
		Balances:     r.Balances,
		JournalCount: r.JournalCount,
	}
}

// AccountDifferenceResponse is one reconciliation mismatch.
type AccountDifferenceResponse struct {
	Account    string          `json:"account"`
	Recorded   decimal.Decimal `json:"recorded"`
	Calculated decimal.Decimal `json:"calculated"`
	Difference decimal.Decimal `json:"difference"`
}

// ConsistencyResponse is the result of a reconciliation.
type ConsistencyResponse struct {
	Status      string                      `json:"status"`
	Consistent  bool                        `json:"consistent"`
	CheckedAt   time.Time                   `json:"checkedAt"`
	Differences []AccountDifferenceResponse `json:"differences"`
}

// ConsistencyFromReport converts a reconciliation report to a response.
func ConsistencyFromReport(r *usecase.ReconciliationReport) *ConsistencyResponse {
	resp := &ConsistencyResponse{
		Status:      "consistent",
		Consistent:  r.Consistent,
		CheckedAt:   r.CheckedAt,
		Differences: make([]AccountDifferenceResponse, 0, len(r.Differences)),
	}

	if !r.Consistent {
		resp.Status = "inconsistent"
	}

	for _, d := range r.Differences {
		resp.Differences = append(resp.Differences, AccountDifferenceResponse{
			Account:    d.Account,
			Recorded:   d.Recorded,
			Calculated: d.Calculated,
			Difference: d.Difference,
		})
	}

	return resp
}

// ImportResponse reports what a snapshot import replaced.
type ImportResponse struct {
	Version          string `json:"version,omitempty"`
	JournalsReplaced bool   `json:"journalsReplaced"`
	BalancesReplaced bool   `json:"balancesReplaced"`
	JournalCount     int    `json:"journalCount"`
	BalanceCount     int    `json:"balanceCount"`
}
