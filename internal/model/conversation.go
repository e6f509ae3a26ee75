package model

import "time"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of a session's conversation. Turns live only in the
// session cache; they are never written to the registry database.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Citation points at the provenance of a passage supplied to the model.
type Citation struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
}

// Answer is a generated reply plus the ordered, deduplicated citations of
// the passages that were supplied as grounding context.
type Answer struct {
	Text    string     `json:"text"`
	Sources []Citation `json:"sources"`
}

// IngestJob is the payload published to the ingest queue when a book is
// selected in the UI.
type IngestJob struct {
	BookPath    string    `json:"book_path"`
	RequestedAt time.Time `json:"requested_at"`
}
