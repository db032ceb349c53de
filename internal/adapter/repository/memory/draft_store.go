package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iho/gardenledger/internal/domain"
)

// sweepInterval bounds how often Save scans for expired drafts.
const sweepInterval = time.Minute

// DraftStore implements usecase.DraftStore in process memory. Expired drafts
// are dropped on lookup, by Sweep, and by Save at most once per sweepInterval.
type DraftStore struct {
	mu        sync.Mutex
	drafts    map[string]draft
	now       func() time.Time
	nextSweep time.Time
}

type draft struct {
	journal   *domain.Journal
	expiresAt time.Time
}

// NewDraftStore creates an empty DraftStore.
func NewDraftStore() *DraftStore {
	return &DraftStore{
		drafts: make(map[string]draft),
		now:    time.Now,
	}
}

// Save stores a copy of journal under its DraftID.
func (s *DraftStore) Save(ctx context.Context, journal *domain.Journal, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.Before(s.nextSweep) {
		s.sweep(now)
		s.nextSweep = now.Add(sweepInterval)
	}

	s.drafts[journal.DraftID] = draft{
		journal:   journal.Clone(),
		expiresAt: now.Add(ttl),
	}

	return nil
}

// Get returns a copy of the draft, or domain.ErrJournalNotFound.
func (s *DraftStore) Get(ctx context.Context, draftID string) (*domain.Journal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[draftID]
	if !ok {
		return nil, domain.ErrJournalNotFound
	}

	if !s.now().Before(d.expiresAt) {
		delete(s.drafts, draftID)
		return nil, domain.ErrJournalNotFound
	}

	return d.journal.Clone(), nil
}

// Delete removes a draft. Unknown IDs are ignored.
func (s *DraftStore) Delete(ctx context.Context, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, draftID)
	return nil
}

// Sweep removes every expired draft and returns how many were removed.
func (s *DraftStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweep(s.now())
}

// Len returns the number of stored drafts, expired or not.
func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.drafts)
}

func (s *DraftStore) sweep(now time.Time) int {
	removed := 0
	for id, d := range s.drafts {
		if !now.Before(d.expiresAt) {
			delete(s.drafts, id)
			removed++
		}
	}
	return removed
}
