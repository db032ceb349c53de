package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gardenledger/internal/adapter/http/dto"
	"github.com/iho/gardenledger/internal/domain"
	"github.com/iho/gardenledger/internal/usecase"
)

// LedgerHandler serves the committed state of the ledger.
type LedgerHandler struct {
	ledger LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Accounts lists the chart of accounts with current balances.
func (h *LedgerHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	balances, err := h.ledger.Balances(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromChart(h.ledger.Chart(), balances))
}

// AccountEntries lists the most recent committed entries for one account.
func (h *LedgerHandler) AccountEntries(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := domain.ValidateAccountName(name); err != nil {
		writeDomainError(w, err)
		return
	}

	limit := parseIntQuery(r, "limit", usecase.DefaultRecentEntriesLimit)

	entries, err := h.ledger.RecentEntriesForAccount(r.Context(), name, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Balances returns every stored balance.
func (h *LedgerHandler) Balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.ledger.Balances(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesResponse{Balances: balances})
}

// Summary returns asset and liability totals with the net position.
func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.Summary(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryFromUseCase(summary, h.ledger.Strict()))
}

// Journals lists committed journals, most recent first.
func (h *LedgerHandler) Journals(w http.ResponseWriter, r *http.Request) {
	journals, err := h.ledger.Journals(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListJournalsResponse{
		Journals: dto.JournalsFromDomain(journals),
		Total:    int64(len(journals)),
	})
}

// Consistency compares stored balances with balances replayed from journals.
func (h *LedgerHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.Reconcile(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check consistency", err.Error())
		return
	}

	status := http.StatusOK
	if !report.Consistent {
		status = http.StatusConflict
	}

	writeJSON(w, status, dto.ConsistencyFromReport(report))
}
