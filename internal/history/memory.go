package history

import (
	"context"
	"sync"
)

// MemoryStore is the non-persistent fallback: bounded slices behind a mutex.
type MemoryStore struct {
	mu            sync.Mutex
	uploads       []Upload
	conversations []Conversation
}

// NewMemoryStore creates an in-memory history store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// RecordUpload prepends an upload entry, dropping the oldest past the cap.
func (s *MemoryStore) RecordUpload(_ context.Context, u Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = prepend(s.uploads, u)
	return nil
}

// RecordConversation prepends a conversation entry, dropping the oldest past
// the cap.
func (s *MemoryStore) RecordConversation(_ context.Context, c Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = prepend(s.conversations, c)
	return nil
}

// RecentUploads returns up to n entries, newest first.
func (s *MemoryStore) RecentUploads(_ context.Context, n int) ([]Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return head(s.uploads, n), nil
}

// RecentConversations returns up to n entries, newest first.
func (s *MemoryStore) RecentConversations(_ context.Context, n int) ([]Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return head(s.conversations, n), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func prepend[T any](list []T, v T) []T {
	list = append([]T{v}, list...)
	if len(list) > maxEntries {
		list = list[:maxEntries]
	}
	return list
}

func head[T any](list []T, n int) []T {
	if n > len(list) {
		n = len(list)
	}
	out := make([]T, n)
	copy(out, list[:n])
	return out
}
