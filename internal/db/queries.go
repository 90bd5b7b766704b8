package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// UpsertRecords writes a batch of records with a single multi-row statement.
// On id collision the existing row is overwritten (text, vector, metadata and
// created_at), which makes repeated ingestion idempotent. The write is atomic
// per call; callers split large batches themselves.
func (db *DB) UpsertRecords(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*4)
	param := 1

	for _, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", rec.ID, err)
		}
		placeholders = append(placeholders,
			fmt.Sprintf("($%d, $%d, $%d, $%d, CURRENT_TIMESTAMP)", param, param+1, param+2, param+3))
		args = append(args, rec.ID, rec.Text, rec.Embedding, meta)
		param += 4
	}

	query := fmt.Sprintf(
		`INSERT INTO docs (id, text, vector, metadata, created_at) VALUES %s
		 ON CONFLICT (id) DO UPDATE SET
		   text = EXCLUDED.text,
		   vector = EXCLUDED.vector,
		   metadata = EXCLUDED.metadata,
		   created_at = CURRENT_TIMESTAMP`,
		strings.Join(placeholders, ", "))

	if _, err := db.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert %d records: %w", len(records), err)
	}
	return nil
}

// LatestBatchID returns the uploadedAt value of the most recent upload batch,
// compared numerically, or "" when no record carries one. The comparison must
// be on the bigint cast: "9" sorts above "10" as text.
func (db *DB) LatestBatchID(ctx context.Context) (string, error) {
	var batchID string
	err := db.pool.QueryRow(ctx,
		`SELECT metadata->>'uploadedAt'
		 FROM docs
		 WHERE metadata->>'uploadedAt' IS NOT NULL
		 ORDER BY (metadata->>'uploadedAt')::bigint DESC
		 LIMIT 1`,
	).Scan(&batchID)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve latest batch: %w", err)
	}
	return batchID, nil
}

// SearchByBatch returns up to limit records of one upload batch, ordered by
// ascending inner-product distance to the query vector.
func (db *DB) SearchByBatch(ctx context.Context, batchID string, query pgvector.Vector, limit int) ([]Record, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, text, metadata, created_at
		 FROM docs
		 WHERE metadata->>'uploadedAt' = $1
		 ORDER BY vector <#> $2::vector ASC
		 LIMIT $3`,
		batchID, query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search batch %s: %w", batchID, err)
	}
	return scanRecords(rows)
}

// SearchSince returns up to limit records written within the given window,
// ordered by ascending inner-product distance to the query vector. Fallback
// scope for legacy rows that never carried an uploadedAt.
func (db *DB) SearchSince(ctx context.Context, window time.Duration, query pgvector.Vector, limit int) ([]Record, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, text, metadata, created_at
		 FROM docs
		 WHERE created_at >= NOW() - make_interval(secs => $1)
		 ORDER BY vector <#> $2::vector ASC
		 LIMIT $3`,
		window.Seconds(), query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search recent records: %w", err)
	}
	return scanRecords(rows)
}

// AttachCloudStorage patches the cloud-storage back-reference into the
// metadata of every record of one upload batch.
func (db *DB) AttachCloudStorage(ctx context.Context, batchID string, ref CloudStorageRef) error {
	patch, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("failed to marshal cloud storage ref: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE docs
		 SET metadata = jsonb_set(COALESCE(metadata, '{}'::jsonb), '{cloudStorage}', $1::jsonb)
		 WHERE metadata->>'uploadedAt' = $2`,
		patch, batchID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach cloud storage to batch %s: %w", batchID, err)
	}
	return nil
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var meta []byte
		if err := rows.Scan(&rec.ID, &rec.Text, &meta, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
