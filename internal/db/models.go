package db

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Record is one stored chunk of an ingested document. Its ID is derived from
// the upload batch id, the source name and the chunk ordinal, so re-ingesting
// the same batch overwrites instead of duplicating.
type Record struct {
	ID        string
	Text      string
	Embedding pgvector.Vector
	Metadata  Metadata
	CreatedAt time.Time
}

// Metadata is the JSON metadata column of a record. UploadedAt is the upload
// batch id, a millisecond timestamp serialized as a string; every record of
// one ingestion call shares the same value.
type Metadata struct {
	Source       string           `json:"source"`
	UploadedAt   string           `json:"uploadedAt"`
	CloudStorage *CloudStorageRef `json:"cloudStorage,omitempty"`
}

// CloudStorageRef points at the archived raw file a record came from.
// Attached after ingestion, never required for retrieval.
type CloudStorageRef struct {
	Key      string `json:"key"`
	URL      string `json:"url,omitempty"`
	Provider string `json:"provider"`
}
