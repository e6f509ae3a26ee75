package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Page is one page of a PDF with its extracted text. Pages with no
// extractable text keep their number and carry an empty Text so that
// citations stay accurate.
type Page struct {
	Number int    `json:"number"` // 1-based
	Text   string `json:"text"`
}

// Chunk is a bounded span of book text, the unit of retrieval. A chunk may
// span adjacent pages; FirstPage/LastPage record the range it covers.
type Chunk struct {
	ID        string `json:"id"`
	BookPath  string `json:"book_path"`
	Text      string `json:"text"`
	Index     int    `json:"index"` // position within the book's chunk sequence
	FirstPage int    `json:"first_page"`
	LastPage  int    `json:"last_page"`
}

// ChunkID derives the stable identifier for a chunk. It is a pure function
// of the book path, the chunk position, and the chunk text, so re-ingesting
// an unmodified book always produces the same IDs.
func ChunkID(bookPath string, index int, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d#%s", bookPath, index, text)))
	return hex.EncodeToString(sum[:8])
}

// Retrieved is a chunk returned by a similarity query together with its
// score (cosine similarity, higher is closer).
type Retrieved struct {
	Chunk
	Similarity float32 `json:"similarity"`
}
