// Package snapshot converts ledger snapshots to and from the JSON export
// document used by the garden UI.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gardenledger/internal/domain"
	"github.com/iho/gardenledger/internal/usecase"
)

// Document is the on-disk export format.
type Document struct {
	JournalEntries  []JournalDocument      `json:"journalEntries"`
	AccountBalances map[string]json.Number `json:"accountBalances"`
	ExportDate      string                 `json:"exportDate,omitempty"`
	Version         string                 `json:"version,omitempty"`
}

type JournalDocument struct {
	Timestamp   time.Time       `json:"timestamp"`
	CommittedAt *time.Time      `json:"committedAt,omitempty"`
	Entries     []EntryDocument `json:"entries"`
	ID          int64           `json:"id"`
}

type EntryDocument struct {
	Timestamp time.Time   `json:"timestamp"`
	ID        string      `json:"id,omitempty"`
	Account   string      `json:"account"`
	Type      string      `json:"type"`
	Amount    json.Number `json:"amount"`
}

// Codec encodes and decodes snapshots. Entries imported without an id get
// one from the generator.
type Codec struct {
	idGen usecase.IDGenerator
}

// NewCodec creates a new Codec.
func NewCodec(idGen usecase.IDGenerator) *Codec {
	return &Codec{idGen: idGen}
}

// FileName is the suggested download name for an export taken at t.
func FileName(t time.Time) string {
	return "accounting-garden-" + t.UTC().Format("2006-01-02") + ".json"
}

// Encode writes s as an indented JSON document.
func (c *Codec) Encode(w io.Writer, s *domain.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ToDocument(s))
}

// Decode reads a document and converts it. Any malformed part fails the
// whole decode with domain.ErrInvalidSnapshot.
func (c *Codec) Decode(r io.Reader) (*domain.Snapshot, error) {
	var doc Document

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}

	return c.FromDocument(&doc)
}

// ToDocument converts a snapshot into its export form. Both sections are
// always present in the output.
func ToDocument(s *domain.Snapshot) *Document {
	doc := &Document{
		JournalEntries:  make([]JournalDocument, 0, len(s.Journals)),
		AccountBalances: make(map[string]json.Number, len(s.Balances)),
		Version:         s.Version,
	}

	if !s.ExportDate.IsZero() {
		doc.ExportDate = s.ExportDate.UTC().Format(time.RFC3339Nano)
	}

	for _, j := range s.Journals {
		jd := JournalDocument{
			Timestamp: j.CreatedAt,
			Entries:   make([]EntryDocument, 0, len(j.Entries)),
			ID:        j.ID,
		}
		if j.CommittedAt != nil {
			at := *j.CommittedAt
			jd.CommittedAt = &at
		}

		for _, e := range j.Entries {
			jd.Entries = append(jd.Entries, EntryDocument{
				Timestamp: e.CreatedAt,
				ID:        e.ID,
				Account:   e.Account,
				Type:      string(e.Kind),
				Amount:    json.Number(e.Amount.String()),
			})
		}

		doc.JournalEntries = append(doc.JournalEntries, jd)
	}

	for name, b := range s.Balances {
		doc.AccountBalances[name] = json.Number(b.String())
	}

	return doc
}

// FromDocument converts an export document into a snapshot. A missing
// section stays nil so that the import keeps the current state for it.
func (c *Codec) FromDocument(doc *Document) (*domain.Snapshot, error) {
	s := &domain.Snapshot{Version: doc.Version}

	if doc.ExportDate != "" {
		t, err := time.Parse(time.RFC3339Nano, doc.ExportDate)
		if err != nil {
			return nil, fmt.Errorf("%w: exportDate: %v", domain.ErrInvalidSnapshot, err)
		}
		s.ExportDate = t
	}

	if doc.JournalEntries != nil {
		s.Journals = make([]*domain.Journal, 0, len(doc.JournalEntries))
		for i, jd := range doc.JournalEntries {
			j, err := c.journal(jd)
			if err != nil {
				return nil, fmt.Errorf("%w: journal %d: %v", domain.ErrInvalidSnapshot, i, err)
			}
			s.Journals = append(s.Journals, j)
		}
	}

	if doc.AccountBalances != nil {
		s.Balances = make(map[string]decimal.Decimal, len(doc.AccountBalances))
		for name, n := range doc.AccountBalances {
			if err := domain.ValidateAccountName(name); err != nil {
				return nil, fmt.Errorf("%w: balance: %v", domain.ErrInvalidSnapshot, err)
			}

			b, err := decimal.NewFromString(n.String())
			if err != nil {
				return nil, fmt.Errorf("%w: balance of %q is not a number", domain.ErrInvalidSnapshot, name)
			}
			s.Balances[name] = b
		}
	}

	return s, nil
}

func (c *Codec) journal(jd JournalDocument) (*domain.Journal, error) {
	j := &domain.Journal{
		ID:        jd.ID,
		CreatedAt: jd.Timestamp,
		Status:    domain.JournalStatusCommitted,
		Entries:   make([]domain.Entry, 0, len(jd.Entries)),
	}

	committedAt := jd.Timestamp
	if jd.CommittedAt != nil {
		committedAt = *jd.CommittedAt
	}
	j.CommittedAt = &committedAt

	for k, ed := range jd.Entries {
		if err := domain.ValidateAccountName(ed.Account); err != nil {
			return nil, fmt.Errorf("entry %d: %w", k, err)
		}

		kind, err := domain.ParseEntryKind(ed.Type)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", k, err)
		}

		amount, err := decimal.NewFromString(ed.Amount.String())
		if err != nil {
			return nil, fmt.Errorf("entry %d: amount %q is not a number", k, ed.Amount)
		}
		if err := domain.ValidateAmount(amount); err != nil {
			return nil, fmt.Errorf("entry %d: %w", k, err)
		}

		id := ed.ID
		if id == "" {
			id = c.idGen.Generate()
		}

		j.Entries = append(j.Entries, domain.Entry{
			CreatedAt: ed.Timestamp,
			ID:        id,
			Account:   ed.Account,
			Kind:      kind,
			Amount:    amount,
		})
	}

	return j, nil
}
