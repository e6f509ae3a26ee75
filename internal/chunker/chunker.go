// Package chunker splits a book's extracted pages into overlapping,
// bounded-size chunks that remember which pages they came from.
package chunker

import (
	"bookwise/internal/model"
)

const (
	defaultChunkSize    = 2000 // runes
	defaultChunkOverlap = 200  // runes
)

type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// New creates a chunker with the given size and overlap, in runes. Invalid
// values are clamped: a non-positive size falls back to the default, an
// overlap at or above the size falls back to half of it.
func New(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// pageSpan maps a half-open rune range of the concatenated text back to its
// source page. Empty pages produce no span, so no chunk ever claims them.
type pageSpan struct {
	number     int
	start, end int
}

// Chunk slides a window of chunkSize runes over the concatenation of all
// page text, advancing chunkSize-chunkOverlap runes per step. Every chunk
// records the page range it covers and gets a deterministic ID, so the same
// pages and configuration always yield an identical sequence. A book with
// zero extractable text yields no chunks.
func (c *Chunker) Chunk(bookPath string, pages []model.Page) []model.Chunk {
	var text []rune
	var spans []pageSpan
	for _, p := range pages {
		runes := []rune(p.Text)
		if len(runes) == 0 {
			continue
		}
		// Separate pages with a newline so the last word of one page never
		// fuses with the first word of the next.
		if len(text) > 0 {
			text = append(text, '\n')
		}
		spans = append(spans, pageSpan{
			number: p.Number,
			start:  len(text),
			end:    len(text) + len(runes),
		})
		text = append(text, runes...)
	}
	if len(text) == 0 {
		return nil
	}

	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}

	var chunks []model.Chunk
	index := 0
	for start := 0; start < len(text); start += step {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunkText := string(text[start:end])
		chunks = append(chunks, model.Chunk{
			ID:        model.ChunkID(bookPath, index, chunkText),
			BookPath:  bookPath,
			Text:      chunkText,
			Index:     index,
			FirstPage: firstPageAt(spans, start),
			LastPage:  lastPageAt(spans, end-1),
		})
		index++
		if end >= len(text) {
			break
		}
	}
	return chunks
}

// firstPageAt maps a chunk's start offset to its page. An offset on a page
// separator belongs to the page that follows it.
func firstPageAt(spans []pageSpan, offset int) int {
	for _, s := range spans {
		if offset < s.end {
			return s.number
		}
	}
	return 0
}

// lastPageAt maps a chunk's final offset to its page. An offset on a page
// separator belongs to the page before it.
func lastPageAt(spans []pageSpan, offset int) int {
	for i := len(spans) - 1; i >= 0; i-- {
		if offset >= spans[i].start {
			return spans[i].number
		}
	}
	return 0
}
