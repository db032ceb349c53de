package usecase

import "time"

const (
	// DefaultRecentEntriesLimit matches the account panel's last-transactions view.
	DefaultRecentEntriesLimit = 3

	// MaxRecentEntriesLimit caps RecentEntriesForAccount.
	MaxRecentEntriesLimit = 100

	// DefaultDraftTTL is how long an untouched open journal is kept.
	DefaultDraftTTL = 24 * time.Hour

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPending is stored under a claimed key until the response is ready.
	IdempotencyPending = "processing"
)
