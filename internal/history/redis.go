package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	uploadsKey       = "history:uploads"
	conversationsKey = "history:conversations"
)

// RedisStore keeps history in capped Redis lists, newest first.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// RecordUpload pushes an upload entry and trims the list to the cap.
func (s *RedisStore) RecordUpload(ctx context.Context, u Upload) error {
	return s.push(ctx, uploadsKey, u)
}

// RecordConversation pushes a conversation entry and trims the list to the cap.
func (s *RedisStore) RecordConversation(ctx context.Context, c Conversation) error {
	return s.push(ctx, conversationsKey, c)
}

// RecentUploads returns up to n entries, newest first.
func (s *RedisStore) RecentUploads(ctx context.Context, n int) ([]Upload, error) {
	var out []Upload
	if err := s.fetch(ctx, uploadsKey, n, func(raw string) error {
		var u Upload
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return err
		}
		out = append(out, u)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentConversations returns up to n entries, newest first.
func (s *RedisStore) RecentConversations(ctx context.Context, n int) ([]Conversation, error) {
	var out []Conversation
	if err := s.fetch(ctx, conversationsKey, n, func(raw string) error {
		var c Conversation
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) push(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, maxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}
	return nil
}

func (s *RedisStore) fetch(ctx context.Context, key string, n int, decode func(string) error) error {
	raws, err := s.client.LRange(ctx, key, 0, int64(n)-1).Result()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	for _, raw := range raws {
		if err := decode(raw); err != nil {
			return fmt.Errorf("failed to decode history entry: %w", err)
		}
	}
	return nil
}
