// Package history keeps ancillary bookkeeping: which documents were uploaded
// and which conversations happened. It never holds document records; losing
// it costs nothing but the activity log, so an in-memory store is an
// acceptable fallback when Redis is not configured.
package history

import (
	"context"
	"time"
)

// Keep at most this many entries per list.
const maxEntries = 100

// Upload records one completed ingestion call.
type Upload struct {
	Source  string    `json:"source"`
	BatchID string    `json:"batchId"`
	Count   int       `json:"count"`
	At      time.Time `json:"at"`
}

// Conversation records one chat exchange.
type Conversation struct {
	Query  string    `json:"query"`
	Answer string    `json:"answer"`
	At     time.Time `json:"at"`
}

// Store is the bookkeeping interface. The backend is selected once at
// startup; callers never branch on it.
type Store interface {
	RecordUpload(ctx context.Context, u Upload) error
	RecordConversation(ctx context.Context, c Conversation) error
	RecentUploads(ctx context.Context, n int) ([]Upload, error)
	RecentConversations(ctx context.Context, n int) ([]Conversation, error)
	Close() error
}

// Open resolves the store strategy: Redis when a URL is configured, otherwise
// the in-memory fallback.
func Open(redisURL string) (Store, error) {
	if redisURL == "" {
		return NewMemoryStore(), nil
	}
	return NewRedisStore(redisURL)
}
