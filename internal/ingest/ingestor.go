package ingest

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/The-Feng/mastra-rag-chatbot/internal/chunker"
	"github.com/The-Feng/mastra-rag-chatbot/internal/db"
	"github.com/The-Feng/mastra-rag-chatbot/internal/extract"
)

// Batch bounds. The embedding bound stays under the API's per-request item
// limit; the insert bound keeps a single multi-row statement at a safe size.
const (
	defaultEmbedBatchSize  = 1000
	defaultInsertBatchSize = 500
)

// Embedder turns a batch of texts into one vector per text, same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// RecordStore persists record batches with upsert semantics.
type RecordStore interface {
	UpsertRecords(ctx context.Context, records []db.Record) error
}

// Result reports one ingestion call: how many chunks were written and the
// upload batch id they all share.
type Result struct {
	Count   int
	BatchID string
}

// Ingestor drives chunk, embed and persist for one document at a time.
// Embedding batches and their write sub-batches run strictly sequentially;
// a failure aborts the call, leaving earlier sub-batches committed.
type Ingestor struct {
	store     RecordStore
	embedder  Embedder
	splitter  *chunker.Splitter
	extractor *extract.Extractor

	embedBatchSize  int
	insertBatchSize int
}

// New creates an ingestor
func New(store RecordStore, embedder Embedder) *Ingestor {
	return &Ingestor{
		store:           store,
		embedder:        embedder,
		splitter:        chunker.New(),
		extractor:       extract.New(),
		embedBatchSize:  defaultEmbedBatchSize,
		insertBatchSize: defaultInsertBatchSize,
	}
}

// IngestFile extracts text from an uploaded file and ingests it under the
// file name as source.
func (ing *Ingestor) IngestFile(ctx context.Context, data []byte, fileName, mimeType string) (Result, error) {
	text, err := ing.extractor.Text(ctx, data, fileName, mimeType)
	if err != nil {
		return Result{}, err
	}
	return ing.IngestText(ctx, text, fileName)
}

// IngestText chunks text, embeds the chunks and upserts them into the record
// store. Every record of the call shares one upload batch id; record ids are
// derived from (batch id, source, ordinal) so repeating the call overwrites
// rather than duplicates.
func (ing *Ingestor) IngestText(ctx context.Context, text, source string) (Result, error) {
	chunks := ing.splitter.Split(text)
	batchID := strconv.FormatInt(time.Now().UnixMilli(), 10)
	log.Printf("Document chunked: %d pieces (source=%s, batch=%s)", len(chunks), source, batchID)

	total := 0
	for start := 0; start < len(chunks); start += ing.embedBatchSize {
		end := min(start+ing.embedBatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		embeddings, err := ing.embedder.Embed(ctx, texts)
		if err != nil {
			return Result{Count: total, BatchID: batchID},
				fmt.Errorf("failed to embed chunks %d-%d of %d: %w", start, end-1, len(chunks), err)
		}
		if len(embeddings) != len(batch) {
			return Result{Count: total, BatchID: batchID},
				fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(batch))
		}

		for sub := 0; sub < len(batch); sub += ing.insertBatchSize {
			subEnd := min(sub+ing.insertBatchSize, len(batch))
			records := make([]db.Record, 0, subEnd-sub)
			for i := sub; i < subEnd; i++ {
				records = append(records, db.Record{
					ID:        recordID(batchID, source, batch[i].Ordinal),
					Text:      batch[i].Text,
					Embedding: pgvector.NewVector(embeddings[i]),
					Metadata:  db.Metadata{Source: source, UploadedAt: batchID},
				})
			}
			if err := ing.store.UpsertRecords(ctx, records); err != nil {
				return Result{Count: total, BatchID: batchID},
					fmt.Errorf("failed to write chunks %d-%d of %d: %w", start+sub, start+subEnd-1, len(chunks), err)
			}
			total += len(records)
		}
	}

	log.Printf("Document ingested: %d chunks (source=%s, batch=%s)", total, source, batchID)
	return Result{Count: total, BatchID: batchID}, nil
}

// recordID derives the primary key of one chunk. Combining batch id, source
// and ordinal keeps repeated ingestion of the same source unique per call.
func recordID(batchID, source string, ordinal int) string {
	return fmt.Sprintf("%s-%s-%d", batchID, source, ordinal)
}
