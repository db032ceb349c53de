package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gardenledger/internal/adapter/http/dto"
)

// JournalHandler drives draft journals.
type JournalHandler struct {
	journals JournalService
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(journals JournalService) *JournalHandler {
	return &JournalHandler{journals: journals}
}

// Open starts a new draft.
func (h *JournalHandler) Open(w http.ResponseWriter, r *http.Request) {
	journal, err := h.journals.Open(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.JournalFromDomain(journal))
}

// Get returns a draft.
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	journal, err := h.journals.Get(r.Context(), chi.URLParam(r, "draftID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.JournalFromDomain(journal))
}

// AddEntry appends an entry. Without a type the selected account and its
// selection state decide the entry.
func (h *JournalHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req dto.AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	draftID := chi.URLParam(r, "draftID")

	if req.UsesSelection() {
		journal, err := h.journals.AddSelectedEntry(r.Context(), draftID, req.Amount.String())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, dto.JournalFromDomain(journal))
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	journal, err := h.journals.AddEntry(r.Context(), draftID, input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.JournalFromDomain(journal))
}

// Select advances the selection click-cycle for an account.
func (h *JournalHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	journal, err := h.journals.Select(r.Context(), chi.URLParam(r, "draftID"), req.Account)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.JournalFromDomain(journal))
}

// Commit commits a draft. An unbalanced draft gets 422 with its totals and
// stays open.
func (h *JournalHandler) Commit(w http.ResponseWriter, r *http.Request) {
	result, err := h.journals.Commit(r.Context(), chi.URLParam(r, "draftID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CommitFromUseCase(result))
}

// Discard drops a draft.
func (h *JournalHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.journals.Discard(r.Context(), chi.URLParam(r, "draftID")); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
