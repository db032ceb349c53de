package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/gardenledger/internal/domain"
)

// DraftStore implements usecase.DraftStore using Redis. Each draft is one
// JSON value that expires with its TTL.
type DraftStore struct {
	client *redis.Client
	prefix string
}

// NewDraftStore creates a new DraftStore.
func NewDraftStore(client *redis.Client) *DraftStore {
	return &DraftStore{
		client: client,
		prefix: "journal:draft:",
	}
}

type draftRecord struct {
	CreatedAt time.Time       `json:"createdAt"`
	DraftID   string          `json:"draftId"`
	Status    string          `json:"status"`
	Entries   []entryRecord   `json:"entries"`
	Selection selectionRecord `json:"selection"`
	ID        int64           `json:"id"`
}

type entryRecord struct {
	CreatedAt time.Time       `json:"createdAt"`
	ID        string          `json:"id"`
	Account   string          `json:"account"`
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
}

type selectionRecord struct {
	Account string `json:"account,omitempty"`
	State   int    `json:"state"`
}

// Save stores journal under its DraftID, resetting the TTL.
func (s *DraftStore) Save(ctx context.Context, journal *domain.Journal, ttl time.Duration) error {
	if journal.DraftID == "" {
		return errors.New("draft id is empty")
	}

	payload, err := json.Marshal(toRecord(journal))
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	return s.client.Set(ctx, s.prefix+journal.DraftID, payload, ttl).Err()
}

// Get loads a draft. Missing or expired drafts return domain.ErrJournalNotFound.
func (s *DraftStore) Get(ctx context.Context, draftID string) (*domain.Journal, error) {
	payload, err := s.client.Get(ctx, s.prefix+draftID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrJournalNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec draftRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode draft %s: %w", draftID, err)
	}

	return fromRecord(rec), nil
}

// Delete removes a draft. Unknown IDs are ignored.
func (s *DraftStore) Delete(ctx context.Context, draftID string) error {
	return s.client.Del(ctx, s.prefix+draftID).Err()
}

func toRecord(j *domain.Journal) draftRecord {
	rec := draftRecord{
		CreatedAt: j.CreatedAt,
		DraftID:   j.DraftID,
		Status:    string(j.Status),
		Entries:   make([]entryRecord, len(j.Entries)),
		Selection: selectionRecord{Account: j.Selection.Account, State: int(j.Selection.State)},
		ID:        j.ID,
	}

	for i, e := range j.Entries {
		rec.Entries[i] = entryRecord{
			CreatedAt: e.CreatedAt,
			ID:        e.ID,
			Account:   e.Account,
			Kind:      string(e.Kind),
			Amount:    e.Amount,
		}
	}

	return rec
}

func fromRecord(rec draftRecord) *domain.Journal {
	j := &domain.Journal{
		CreatedAt: rec.CreatedAt,
		DraftID:   rec.DraftID,
		Status:    domain.JournalStatus(rec.Status),
		Entries:   make([]domain.Entry, len(rec.Entries)),
		Selection: domain.Selection{Account: rec.Selection.Account, State: domain.SelectionState(rec.Selection.State)},
		ID:        rec.ID,
	}

	for i, e := range rec.Entries {
		j.Entries[i] = domain.Entry{
			CreatedAt: e.CreatedAt,
			ID:        e.ID,
			Account:   e.Account,
			Kind:      domain.EntryKind(e.Kind),
			Amount:    e.Amount,
		}
	}

	return j
}
