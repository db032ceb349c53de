package dto

import (
	"encoding/json"
	"strings"

	"github.com/iho/gardenledger/internal/domain"
	"github.com/iho/gardenledger/internal/usecase"
)

// AddEntryRequest appends an entry to a draft. With Type empty the entry
// kind comes from the draft's selection, and Account is ignored.
type AddEntryRequest struct {
	Account string      `json:"account,omitempty"`
	Type    string      `json:"type,omitempty"`
	Amount  json.Number `json:"amount"`
}

// UsesSelection reports whether the entry kind should come from the selection.
func (r *AddEntryRequest) UsesSelection() bool {
	return strings.TrimSpace(r.Type) == ""
}

// ToUseCaseInput converts to use case input.
func (r *AddEntryRequest) ToUseCaseInput() (usecase.AddEntryInput, error) {
	kind, err := domain.ParseEntryKind(r.Type)
	if err != nil {
		return usecase.AddEntryInput{}, err
	}

	amount, err := domain.ParseAmount(r.Amount.String())
	if err != nil {
		return usecase.AddEntryInput{}, err
	}

	return usecase.AddEntryInput{
		Account: r.Account,
		Kind:    kind,
		Amount:  amount,
	}, nil
}

// SelectRequest is a click on an account while a journal is open.
type SelectRequest struct {
	Account string `json:"account"`
}
