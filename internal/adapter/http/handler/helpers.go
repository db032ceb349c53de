package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/gardenledger/internal/adapter/http/dto"
	"github.com/iho/gardenledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status mapDomainError picks for it.
// Unbalanced commits carry their totals.
func writeDomainError(w http.ResponseWriter, err error) {
	status := mapDomainError(err)

	resp := dto.ErrorResponse{Error: errorTitle(status), Message: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		debits, credits := verr.Debits, verr.Credits
		resp.Debits = &debits
		resp.Credits = &credits
	}

	if status == http.StatusInternalServerError {
		resp.Message = ""
	}

	writeJSON(w, status, resp)
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrJournalNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAccountName),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidEntryKind),
		errors.Is(err, domain.ErrInvalidClassification),
		errors.Is(err, domain.ErrNoSelection),
		errors.Is(err, domain.ErrInvalidSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrJournalNotOpen),
		errors.Is(err, domain.ErrJournalEmpty):
		return http.StatusConflict
	case errors.Is(err, domain.ErrJournalNotBalanced):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorTitle(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not found"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "journal not balanced"
	default:
		return "internal error"
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
