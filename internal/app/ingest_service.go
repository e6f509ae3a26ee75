package app

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bookwise/internal/library"
	"bookwise/internal/model"
)

const (
	IngestStatusIngested        = "ingested"
	IngestStatusAlreadyIngested = "already-ingested"
)

// Library resolves and enumerates PDF files under the configured root.
type Library interface {
	List() ([]library.Entry, error)
	Resolve(rel string) (string, error)
}

// PageLoader extracts per-page text from a PDF on disk.
type PageLoader interface {
	Load(path string) ([]model.Page, error)
}

// Chunker splits a book's pages into overlapping chunks.
type Chunker interface {
	Chunk(bookPath string, pages []model.Page) []model.Chunk
}

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists chunk vectors and answers similarity queries.
type VectorStore interface {
	Upsert(ctx context.Context, bookPath string, chunks []model.Chunk, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, k int, bookPath string) ([]model.Retrieved, error)
}

// BookRegistry is the durable record of which books were ingested.
type BookRegistry interface {
	GetByPath(path string) (*model.Book, error)
	Save(book *model.Book) error
	List() ([]model.Book, error)
}

type IngestResult struct {
	Path          string `json:"path"`
	Status        string `json:"status"`
	Pages         int    `json:"pages"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

// BookView is a library entry joined with its ingestion record.
type BookView struct {
	Path       string     `json:"path"`
	Filename   string     `json:"filename"`
	SizeBytes  int64      `json:"size_bytes"`
	Status     string     `json:"status"`
	PageCount  int        `json:"page_count,omitempty"`
	ChunkCount int        `json:"chunk_count,omitempty"`
	IngestedAt *time.Time `json:"ingested_at,omitempty"`
}

// IngestService runs the ingestion pipeline: resolve the file, extract
// pages, chunk, embed, upsert into the vector store, and record the result
// in the registry. At most one ingestion runs per book path at a time.
type IngestService struct {
	lib      Library
	loader   PageLoader
	chunker  Chunker
	embedder Embedder
	store    VectorStore
	registry BookRegistry
	logger   zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewIngestService(
	lib Library,
	loader PageLoader,
	chunker Chunker,
	embedder Embedder,
	store VectorStore,
	registry BookRegistry,
	logger zerolog.Logger,
) *IngestService {
	return &IngestService{
		lib:      lib,
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		registry: registry,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// ListBooks returns every PDF in the library joined with its ingestion
// state. Files never seen by the registry report as not ingested.
func (s *IngestService) ListBooks() ([]BookView, error) {
	entries, err := s.lib.List()
	if err != nil {
		return nil, err
	}
	records, err := s.registry.List()
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]model.Book, len(records))
	for _, b := range records {
		byPath[b.Path] = b
	}

	views := make([]BookView, 0, len(entries))
	for _, e := range entries {
		view := BookView{
			Path:      e.Path,
			Filename:  e.Filename,
			SizeBytes: e.Size,
			Status:    model.BookStatusNotIngested,
		}
		if rec, ok := byPath[e.Path]; ok {
			view.Status = rec.Status
			view.PageCount = rec.PageCount
			view.ChunkCount = rec.ChunkCount
			view.IngestedAt = rec.IngestedAt
		}
		views = append(views, view)
	}
	return views, nil
}

// Ingest indexes one book. Re-ingesting an unchanged, already indexed book
// is a no-op; a changed file is re-chunked and its entries replaced. A
// second call for the same path while one is running fails with
// ErrIngestInFlight.
func (s *IngestService) Ingest(ctx context.Context, bookPath string) (*IngestResult, error) {
	bookPath = strings.TrimSpace(bookPath)
	if bookPath == "" {
		return nil, ErrInvalidInput
	}

	absPath, err := s.lib.Resolve(bookPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, library.ErrNotFound
	}

	existing, err := s.registry.GetByPath(bookPath)
	if err != nil {
		return nil, err
	}
	if done := alreadyIngested(existing, info.Size()); done != nil {
		return done, nil
	}

	if !s.acquire(bookPath) {
		return nil, ErrIngestInFlight
	}
	defer s.release(bookPath)

	// Re-check under the lock: a concurrent ingest of the same path may
	// have finished between the first check and acquire, and replaying the
	// embed/upsert run would burn model budget for nothing.
	existing, err = s.registry.GetByPath(bookPath)
	if err != nil {
		return nil, err
	}
	if done := alreadyIngested(existing, info.Size()); done != nil {
		return done, nil
	}

	book := &model.Book{Path: bookPath, SizeBytes: info.Size(), Status: model.BookStatusIngesting}
	if existing != nil {
		book.ID = existing.ID
		book.CreatedAt = existing.CreatedAt
	}
	if err := s.registry.Save(book); err != nil {
		return nil, err
	}

	result, err := s.run(ctx, book, absPath)
	if err != nil {
		book.Status = model.BookStatusNotIngested
		if saveErr := s.registry.Save(book); saveErr != nil {
			s.logger.Error().Err(saveErr).Str("book", bookPath).Msg("record failed ingestion")
		}
		return nil, err
	}
	return result, nil
}

func (s *IngestService) run(ctx context.Context, book *model.Book, absPath string) (*IngestResult, error) {
	started := time.Now()

	pages, err := s.loader.Load(absPath)
	if err != nil {
		return nil, err
	}

	chunks := s.chunker.Chunk(book.Path, pages)
	if len(chunks) == 0 {
		s.logger.Warn().Str("book", book.Path).Int("pages", len(pages)).
			Msg("no extractable text, indexing book with zero chunks")
	} else {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if err := s.store.Upsert(ctx, book.Path, chunks, vectors); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	book.PageCount = len(pages)
	book.ChunkCount = len(chunks)
	book.Status = model.BookStatusIngested
	book.IngestedAt = &now
	if err := s.registry.Save(book); err != nil {
		return nil, err
	}

	s.logger.Info().Str("book", book.Path).Int("pages", len(pages)).
		Int("chunks", len(chunks)).Dur("took", time.Since(started)).Msg("book ingested")

	return &IngestResult{
		Path:          book.Path,
		Status:        IngestStatusIngested,
		Pages:         len(pages),
		ChunksIndexed: len(chunks),
	}, nil
}

// alreadyIngested reports a completed result when the registry row says
// the book was indexed at its current size, nil otherwise.
func alreadyIngested(existing *model.Book, size int64) *IngestResult {
	if existing == nil || existing.Status != model.BookStatusIngested || existing.SizeBytes != size {
		return nil
	}
	return &IngestResult{
		Path:          existing.Path,
		Status:        IngestStatusAlreadyIngested,
		Pages:         existing.PageCount,
		ChunksIndexed: existing.ChunkCount,
	}
}

func (s *IngestService) acquire(bookPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[bookPath]; busy {
		return false
	}
	s.inFlight[bookPath] = struct{}{}
	return true
}

func (s *IngestService) release(bookPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, bookPath)
}
