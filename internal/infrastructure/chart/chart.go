package chart

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iho/gardenledger/internal/domain"
)

// ErrEmptyChart is returned for a chart file without accounts.
var ErrEmptyChart = errors.New("chart has no accounts")

type file struct {
	Accounts []struct {
		Name           string `yaml:"name"`
		Classification string `yaml:"classification"`
	} `yaml:"accounts"`
}

// Load reads a chart of accounts from a YAML file. An empty path returns
// the built-in chart.
func Load(path string) (*domain.ChartOfAccounts, error) {
	if path == "" {
		return domain.DefaultChartOfAccounts(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart file: %w", err)
	}

	chart, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("chart file %s: %w", path, err)
	}

	return chart, nil
}

// Parse decodes a YAML chart:
//
//	accounts:
//	  - name: Cash Account
//	    classification: asset
func Parse(data []byte) (*domain.ChartOfAccounts, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	if len(f.Accounts) == 0 {
		return nil, ErrEmptyChart
	}

	accounts := make([]domain.Account, 0, len(f.Accounts))
	for _, a := range f.Accounts {
		cl, err := domain.ParseClassification(a.Classification)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", a.Name, err)
		}

		accounts = append(accounts, domain.Account{Name: a.Name, Classification: cl})
	}

	return domain.NewChartOfAccounts(accounts)
}
