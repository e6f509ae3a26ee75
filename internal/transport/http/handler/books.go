package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookwise/internal/app"
	"bookwise/internal/transport/http/response"
)

// IngestQueue enqueues a book for background indexing.
type IngestQueue interface {
	Publish(ctx context.Context, bookPath string) error
}

type BooksHandler struct {
	ingestService *app.IngestService
	queue         IngestQueue
	lib           app.Library
}

type IngestRequest struct {
	Path string `json:"path" binding:"required"`
}

type SelectRequest struct {
	Path string `json:"path" binding:"required"`
}

func NewBooksHandler(ingestService *app.IngestService, queue IngestQueue, lib app.Library) *BooksHandler {
	return &BooksHandler{ingestService: ingestService, queue: queue, lib: lib}
}

// List returns every PDF in the library with its ingestion state.
func (h *BooksHandler) List(c *gin.Context) {
	books, err := h.ingestService.ListBooks()
	if err != nil {
		writeServiceError(c, err, "list books failed")
		return
	}
	response.OK(c, gin.H{"books": books})
}

// Ingest indexes one book synchronously and reports what was done.
func (h *BooksHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), req.Path)
	if err != nil {
		writeServiceError(c, err, "ingest failed")
		return
	}
	response.OK(c, result)
}

// Select marks a book for reading and queues its indexing in the
// background, so the first question about it does not wait for the full
// pipeline.
func (h *BooksHandler) Select(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if _, err := h.lib.Resolve(req.Path); err != nil {
		writeServiceError(c, err, "resolve book failed")
		return
	}
	if err := h.queue.Publish(c.Request.Context(), req.Path); err != nil {
		writeServiceError(c, app.ErrIngestEnqueue, "enqueue ingest failed")
		return
	}
	response.OK(c, gin.H{"path": req.Path, "queued": true})
}
