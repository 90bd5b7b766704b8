package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/The-Feng/mastra-rag-chatbot/internal/db"
)

// Legacy rows without an uploadedAt are only reachable through a recency
// window.
const fallbackWindow = time.Hour

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// SearchStore is the read side of the record store.
type SearchStore interface {
	LatestBatchID(ctx context.Context) (string, error)
	SearchByBatch(ctx context.Context, batchID string, query pgvector.Vector, limit int) ([]db.Record, error)
	SearchSince(ctx context.Context, window time.Duration, query pgvector.Vector, limit int) ([]db.Record, error)
}

// Retriever resolves which records are in scope for a query and ranks them by
// similarity. Scope is the most recently uploaded batch; the system reasons
// over exactly one active document at a time. That policy lives entirely here,
// so swapping it for an explicit document or session key later touches nothing
// in ingestion or generation.
type Retriever struct {
	store    SearchStore
	embedder QueryEmbedder
}

// NewRetriever creates a retriever
func NewRetriever(store SearchStore, embedder QueryEmbedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// Retrieve embeds the query and returns up to limit in-scope records ranked
// by similarity. An empty store yields an empty slice, never an error: scope
// resolution always has a defined fallback.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) ([]db.Record, error) {
	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	vec := pgvector.NewVector(embedding)

	batchID, err := r.store.LatestBatchID(ctx)
	if err != nil {
		return nil, err
	}

	if batchID != "" {
		records, err := r.store.SearchByBatch(ctx, batchID, vec, limit)
		if err != nil {
			return nil, err
		}
		return records, nil
	}

	// No record has ever carried an uploadedAt (legacy data): fall back to a
	// recency window instead.
	records, err := r.store.SearchSince(ctx, fallbackWindow, vec, limit)
	if err != nil {
		return nil, err
	}
	return records, nil
}
