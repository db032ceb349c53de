package snapshot

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gardenledger/internal/domain"
)

type seqIDs struct{ n int }

func (g *seqIDs) Generate() string {
	g.n++
	return "gen-" + string(rune('0'+g.n))
}

func sampleSnapshot() *domain.Snapshot {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Snapshot{
		ExportDate: at,
		Version:    domain.SnapshotVersion,
		Balances: map[string]decimal.Decimal{
			"Cash Account": decimal.RequireFromString("100.5"),
			"Bank Loan":    decimal.RequireFromString("-100.5"),
		},
		Journals: []*domain.Journal{
			{
				ID:          1,
				CreatedAt:   at,
				CommittedAt: &at,
				Status:      domain.JournalStatusCommitted,
				Entries: []domain.Entry{
					{ID: "a", Account: "Cash Account", Kind: domain.EntryKindDebit, Amount: decimal.RequireFromString("100.5"), CreatedAt: at},
					{ID: "b", Account: "Bank Loan", Kind: domain.EntryKindCredit, Amount: decimal.RequireFromString("100.5"), CreatedAt: at},
				},
			},
		},
	}
}

func TestEncodeWritesOriginalShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCodec(&seqIDs{}).Encode(&buf, sampleSnapshot()))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))

	assert.Equal(t, "1.0", raw["version"])
	assert.Equal(t, "2024-06-01T10:00:00Z", raw["exportDate"])

	balances := raw["accountBalances"].(map[string]any)
	assert.Equal(t, 100.5, balances["Cash Account"])

	journals := raw["journalEntries"].([]any)
	require.Len(t, journals, 1)
	entries := journals[0].(map[string]any)["entries"].([]any)
	first := entries[0].(map[string]any)
	assert.Equal(t, "debit", first["type"])
	assert.Equal(t, 100.5, first["amount"])
}

func TestEncodeEmptySectionsAreArraysAndObjects(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCodec(&seqIDs{}).Encode(&buf, &domain.Snapshot{Version: "1.0"}))

	out := buf.String()
	assert.Contains(t, out, `"journalEntries": []`)
	assert.Contains(t, out, `"accountBalances": {}`)
}

func TestRoundTrip(t *testing.T) {
	codec := NewCodec(&seqIDs{})
	original := sampleSnapshot()

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, original))

	decoded, err := codec.Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, original.Version, decoded.Version)
	assert.True(t, original.ExportDate.Equal(decoded.ExportDate))
	require.Len(t, decoded.Balances, 2)
	assert.True(t, decoded.Balances["Bank Loan"].Equal(decimal.RequireFromString("-100.5")))

	require.Len(t, decoded.Journals, 1)
	j := decoded.Journals[0]
	assert.Equal(t, int64(1), j.ID)
	assert.Equal(t, domain.JournalStatusCommitted, j.Status)
	require.Len(t, j.Entries, 2)
	assert.Equal(t, "a", j.Entries[0].ID)
	assert.Equal(t, domain.EntryKindCredit, j.Entries[1].Kind)
	assert.True(t, j.Entries[1].Amount.Equal(decimal.RequireFromString("100.5")))
}

func TestDecodeOriginalExport(t *testing.T) {
	doc := `{
  "journalEntries": [
    {
      "id": 2,
      "entries": [
        {"account": "Inventory", "type": "debit", "amount": 40, "timestamp": "2024-06-02T08:00:00.000Z"},
        {"account": "Cash Account", "type": "credit", "amount": 40, "timestamp": "2024-06-02T08:00:01.000Z"}
      ],
      "selectedAccount": null,
      "timestamp": "2024-06-02T07:59:00.000Z"
    }
  ],
  "accountBalances": {"Inventory": 40, "Cash Account": -40, "Bank Loan": 0},
  "exportDate": "2024-06-02T09:00:00.000Z",
  "version": "1.0"
}`

	decoded, err := NewCodec(&seqIDs{}).Decode(strings.NewReader(doc))
	require.NoError(t, err)

	require.Len(t, decoded.Journals, 1)
	j := decoded.Journals[0]
	assert.Equal(t, int64(2), j.ID)
	require.NotNil(t, j.CommittedAt)
	assert.True(t, j.CreatedAt.Equal(*j.CommittedAt))
	assert.Equal(t, "gen-1", j.Entries[0].ID)
	assert.Equal(t, "gen-2", j.Entries[1].ID)
	assert.True(t, decoded.Balances["Cash Account"].Equal(decimal.NewFromInt(-40)))
	assert.Len(t, decoded.Balances, 3)
}

func TestDecodeMissingSectionsStayNil(t *testing.T) {
	decoded, err := NewCodec(&seqIDs{}).Decode(strings.NewReader(`{"accountBalances": {"Cash Account": 5}}`))
	require.NoError(t, err)
	assert.Nil(t, decoded.Journals)
	assert.NotNil(t, decoded.Balances)

	decoded, err = NewCodec(&seqIDs{}).Decode(strings.NewReader(`{"journalEntries": [], "accountBalances": null}`))
	require.NoError(t, err)
	assert.NotNil(t, decoded.Journals)
	assert.Empty(t, decoded.Journals)
	assert.Nil(t, decoded.Balances)
}

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"journalEntries": [`},
		{"bad entry type", `{"journalEntries": [{"id": 1, "entries": [{"account": "Cash", "type": "transfer", "amount": 1}]}]}`},
		{"empty account", `{"journalEntries": [{"id": 1, "entries": [{"account": "", "type": "debit", "amount": 1}]}]}`},
		{"zero amount", `{"journalEntries": [{"id": 1, "entries": [{"account": "Cash", "type": "debit", "amount": 0}]}]}`},
		{"negative amount", `{"journalEntries": [{"id": 1, "entries": [{"account": "Cash", "type": "credit", "amount": -25}]}]}`},
		{"amount over limit", `{"journalEntries": [{"id": 1, "entries": [{"account": "Cash", "type": "debit", "amount": 1000000000000.5}]}]}`},
		{"string balance", `{"accountBalances": {"Cash": "lots"}}`},
		{"bad export date", `{"exportDate": "yesterday"}`},
		{"wrong section type", `{"accountBalances": [1, 2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodec(&seqIDs{}).Decode(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)
		})
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "accounting-garden-2024-12-31.json", FileName(at))
}
