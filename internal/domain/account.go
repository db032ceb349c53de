package domain

import (
	"fmt"
	"strings"
)

// Classification is the static balance-sheet side of an account.
type Classification string

const (
	ClassificationAsset     Classification = "asset"
	ClassificationLiability Classification = "liability"
)

// ParseClassification parses a classification name, case-insensitively.
func ParseClassification(s string) (Classification, error) {
	switch Classification(strings.ToLower(strings.TrimSpace(s))) {
	case ClassificationAsset:
		return ClassificationAsset, nil
	case ClassificationLiability:
		return ClassificationLiability, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidClassification, s)
	}
}

// Account is a named account of the chart. Its balance lives in the ledger.
type Account struct {
	Name           string
	Classification Classification
}

// ChartOfAccounts is the configured, ordered list of accounts.
// It is read-only once built.
type ChartOfAccounts struct {
	accounts []Account
	index    map[string]Classification
}

// NewChartOfAccounts builds a chart, rejecting invalid and duplicate names.
func NewChartOfAccounts(accounts []Account) (*ChartOfAccounts, error) {
	chart := &ChartOfAccounts{
		accounts: make([]Account, 0, len(accounts)),
		index:    make(map[string]Classification, len(accounts)),
	}

	for _, a := range accounts {
		if err := ValidateAccountName(a.Name); err != nil {
			return nil, err
		}

		if a.Classification != ClassificationAsset && a.Classification != ClassificationLiability {
			return nil, fmt.Errorf("%w: %q for account %q", ErrInvalidClassification, a.Classification, a.Name)
		}

		if _, dup := chart.index[a.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAccount, a.Name)
		}

		chart.index[a.Name] = a.Classification
		chart.accounts = append(chart.accounts, a)
	}

	return chart, nil
}

// DefaultChartOfAccounts returns the garden's built-in accounts.
func DefaultChartOfAccounts() *ChartOfAccounts {
	chart, err := NewChartOfAccounts([]Account{
		{Name: "Credit Card Debt", Classification: ClassificationLiability},
		{Name: "Bank Loan", Classification: ClassificationLiability},
		{Name: "Accounts Payable", Classification: ClassificationLiability},
		{Name: "Mortgage", Classification: ClassificationLiability},
		{Name: "Tax Payable", Classification: ClassificationLiability},
		{Name: "Accrued Expenses", Classification: ClassificationLiability},
		{Name: "Short-term Debt", Classification: ClassificationLiability},
		{Name: "Cash Account", Classification: ClassificationAsset},
		{Name: "Savings Account", Classification: ClassificationAsset},
		{Name: "Inventory", Classification: ClassificationAsset},
		{Name: "Equipment", Classification: ClassificationAsset},
		{Name: "Real Estate", Classification: ClassificationAsset},
		{Name: "Investments", Classification: ClassificationAsset},
	})
	if err != nil {
		panic(err)
	}

	return chart
}

// Accounts returns a copy of the chart in configuration order.
func (c *ChartOfAccounts) Accounts() []Account {
	out := make([]Account, len(c.accounts))
	copy(out, c.accounts)
	return out
}

// Classify reports the classification of name, if the chart knows it.
func (c *ChartOfAccounts) Classify(name string) (Classification, bool) {
	cl, ok := c.index[name]
	return cl, ok
}

// Names returns the account names with the given classification.
func (c *ChartOfAccounts) Names(cl Classification) []string {
	var names []string
	for _, a := range c.accounts {
		if a.Classification == cl {
			names = append(names, a.Name)
		}
	}
	return names
}
