// Package vectorstore persists chunk embeddings in an on-disk chromem-go
// database, one collection per book, and answers nearest-neighbor queries.
package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"

	"bookwise/internal/model"
)

// ErrStoreUnavailable reports that the backing storage cannot be opened or
// written. It is fatal for both ingestion and query paths and is never
// swallowed.
var ErrStoreUnavailable = errors.New("vector store unavailable")

const compress = false

// Store wraps a persistent chromem database. Every upsert is written to
// disk before the call returns, so a crash after a successful return loses
// nothing; reopening the same directory restores all collections.
type Store struct {
	db  *chromem.DB
	dir string
}

func New(dir string) (*Store, error) {
	db, err := chromem.NewPersistentDB(dir, compress)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStoreUnavailable, dir, err)
	}
	return &Store{db: db, dir: dir}, nil
}

// collectionName derives a filesystem-safe collection name from the book's
// library path. The real path is kept in each entry's metadata.
func collectionName(bookPath string) string {
	sum := sha256.Sum256([]byte(bookPath))
	return "book-" + hex.EncodeToString(sum[:6])
}

// Upsert writes the chunks and their vectors into the book's collection.
// An entry with an already-present chunk ID is replaced, so replaying an
// ingestion is safe.
func (s *Store) Upsert(ctx context.Context, bookPath string, chunks []model.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}

	col, err := s.db.GetOrCreateCollection(collectionName(bookPath), map[string]string{"path": bookPath}, nil)
	if err != nil {
		return fmt.Errorf("%w: collection for %s: %v", ErrStoreUnavailable, bookPath, err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"path":        c.BookPath,
				"page":        strconv.Itoa(c.FirstPage),
				"last_page":   strconv.Itoa(c.LastPage),
				"chunk_index": strconv.Itoa(c.Index),
			},
		}
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: add documents for %s: %v", ErrStoreUnavailable, bookPath, err)
	}
	return nil
}

// Query returns up to k entries ordered by descending cosine similarity to
// the vector. A non-empty bookPath scopes the search to that book's
// collection only; an empty one searches every collection and merges the
// results. An empty store yields an empty result, not an error.
func (s *Store) Query(ctx context.Context, vector []float32, k int, bookPath string) ([]model.Retrieved, error) {
	if k <= 0 {
		return nil, nil
	}

	var results []chromem.Result
	if bookPath != "" {
		col := s.db.GetCollection(collectionName(bookPath), nil)
		if col == nil {
			return nil, nil
		}
		res, err := s.queryCollection(ctx, col, vector, k)
		if err != nil {
			return nil, err
		}
		results = res
	} else {
		for _, col := range s.db.ListCollections() {
			res, err := s.queryCollection(ctx, col, vector, k)
			if err != nil {
				return nil, err
			}
			results = append(results, res...)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}

	retrieved := make([]model.Retrieved, 0, len(results))
	for _, r := range results {
		retrieved = append(retrieved, toRetrieved(r))
	}
	return retrieved, nil
}

func (s *Store) queryCollection(ctx context.Context, col *chromem.Collection, vector []float32, k int) ([]chromem.Result, error) {
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	res, err := col.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrStoreUnavailable, err)
	}
	return res, nil
}

func toRetrieved(r chromem.Result) model.Retrieved {
	firstPage, _ := strconv.Atoi(r.Metadata["page"])
	lastPage, _ := strconv.Atoi(r.Metadata["last_page"])
	index, _ := strconv.Atoi(r.Metadata["chunk_index"])
	return model.Retrieved{
		Chunk: model.Chunk{
			ID:        r.ID,
			BookPath:  r.Metadata["path"],
			Text:      r.Content,
			Index:     index,
			FirstPage: firstPage,
			LastPage:  lastPage,
		},
		Similarity: r.Similarity,
	}
}

// Count reports how many chunks are stored for the book.
func (s *Store) Count(bookPath string) int {
	col := s.db.GetCollection(collectionName(bookPath), nil)
	if col == nil {
		return 0
	}
	return col.Count()
}

// Reachable reports whether the store directory is still present and
// accessible; used by the health endpoint.
func (s *Store) Reachable() bool {
	if s.db == nil {
		return false
	}
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}
