package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Feng/mastra-rag-chatbot/internal/db"
)

type fakeEmbedder struct {
	calls [][]string
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

type fakeStore struct {
	batches [][]db.Record
	failOn  int // fail the nth UpsertRecords call (1-based), 0 disables
}

func (f *fakeStore) UpsertRecords(ctx context.Context, records []db.Record) error {
	if f.failOn > 0 && len(f.batches)+1 == f.failOn {
		return fmt.Errorf("connection reset")
	}
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeStore) records() []db.Record {
	var all []db.Record
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

func TestIngestTextWritesEveryChunk(t *testing.T) {
	store := &fakeStore{}
	ing := New(store, &fakeEmbedder{})

	res, err := ing.IngestText(context.Background(), "The sky is blue. Grass is green.", "facts.txt")
	require.NoError(t, err)

	records := store.records()
	require.NotEmpty(t, records)
	assert.Equal(t, len(records), res.Count)
	assert.NotEmpty(t, res.BatchID)
}

func TestIngestTextRecordIdentity(t *testing.T) {
	store := &fakeStore{}
	ing := New(store, &fakeEmbedder{})

	res, err := ing.IngestText(context.Background(), "short document", "doc.txt")
	require.NoError(t, err)

	records := store.records()
	require.Len(t, records, 1)
	assert.Equal(t, fmt.Sprintf("%s-doc.txt-0", res.BatchID), records[0].ID)
	assert.Equal(t, "doc.txt", records[0].Metadata.Source)
	assert.Equal(t, res.BatchID, records[0].Metadata.UploadedAt)
}

func TestIngestTextAllRecordsShareBatchID(t *testing.T) {
	store := &fakeStore{}
	ing := New(store, &fakeEmbedder{})
	ing.embedBatchSize = 2
	ing.insertBatchSize = 1

	res, err := ing.IngestText(context.Background(), manyParagraphs(6), "big.txt")
	require.NoError(t, err)

	records := store.records()
	require.Equal(t, res.Count, len(records))
	require.Greater(t, len(records), 2)
	for _, rec := range records {
		assert.Equal(t, res.BatchID, rec.Metadata.UploadedAt)
		assert.True(t, strings.HasPrefix(rec.ID, res.BatchID+"-big.txt-"))
	}
}

func TestIngestTextHonorsBatchBounds(t *testing.T) {
	store := &fakeStore{}
	emb := &fakeEmbedder{}
	ing := New(store, emb)
	ing.embedBatchSize = 2
	ing.insertBatchSize = 2

	_, err := ing.IngestText(context.Background(), manyParagraphs(5), "big.txt")
	require.NoError(t, err)

	for _, call := range emb.calls {
		assert.LessOrEqual(t, len(call), 2)
	}
	for _, batch := range store.batches {
		assert.LessOrEqual(t, len(batch), 2)
	}
}

func TestIngestTextEmbedFailureReportsWritten(t *testing.T) {
	store := &fakeStore{}
	ing := New(store, &fakeEmbedder{err: fmt.Errorf("quota exceeded")})

	res, err := ing.IngestText(context.Background(), "some text", "doc.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Zero(t, res.Count)
	assert.NotEmpty(t, res.BatchID)
	assert.Empty(t, store.records())
}

func TestIngestTextWriteFailureKeepsEarlierBatches(t *testing.T) {
	store := &fakeStore{failOn: 2}
	ing := New(store, &fakeEmbedder{})
	ing.embedBatchSize = 10
	ing.insertBatchSize = 1

	res, err := ing.IngestText(context.Background(), manyParagraphs(4), "big.txt")
	require.Error(t, err)

	// The first sub-batch was committed before the failure and stays counted.
	assert.Equal(t, 1, res.Count)
	assert.Len(t, store.records(), 1)
}

func TestIngestFileRejectsEmptyContent(t *testing.T) {
	store := &fakeStore{}
	ing := New(store, &fakeEmbedder{})

	_, err := ing.IngestFile(context.Background(), []byte("   "), "blank.txt", "text/plain")
	require.Error(t, err)
	assert.Empty(t, store.records())
}

func TestIngestFilePlainText(t *testing.T) {
	store := &fakeStore{}
	ing := New(store, &fakeEmbedder{})

	res, err := ing.IngestFile(context.Background(), []byte("hello from a file"), "hello.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	require.Len(t, store.records(), 1)
	assert.Equal(t, "hello.txt", store.records()[0].Metadata.Source)
}

// manyParagraphs builds a document that splits into at least n chunks.
func manyParagraphs(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(strings.Repeat(fmt.Sprintf("paragraph %d word ", i), 40))
		sb.WriteString("\n\n")
	}
	return sb.String()
}
