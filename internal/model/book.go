package model

import "time"

// Book ingestion states as recorded in the registry.
const (
	BookStatusNotIngested = "not-ingested"
	BookStatusIngesting   = "ingesting"
	BookStatusIngested    = "ingested"
)

// Book is the durable registry row for one PDF in the library. The registry
// is the ingestion ledger: the orchestrator consults it to decide whether a
// book is already indexed before touching the vector store.
type Book struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Path       string    `gorm:"size:512;not null;uniqueIndex" json:"path"`
	SizeBytes  int64     `gorm:"not null" json:"size_bytes"`
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
	Status     string    `gorm:"size:16;not null;default:not-ingested;index" json:"status"`
	IngestedAt *time.Time `json:"ingested_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
