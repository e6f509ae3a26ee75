package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookwise/internal/ai"
	"bookwise/internal/app"
	"bookwise/internal/library"
	"bookwise/internal/pdfload"
	"bookwise/internal/transport/http/response"
	"bookwise/internal/vectorstore"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Unknown errors fall back to a 500 with the handler-supplied message so
// internals never leak to the client.
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, library.ErrAccessDenied):
		response.Error(c, http.StatusForbidden, response.CodeAccessDenied, "path outside the library")
	case errors.Is(err, library.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "book not found")
	case errors.Is(err, app.ErrIngestInFlight):
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	case errors.Is(err, pdfload.ErrUnreadableDocument):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeUnreadable, "document could not be read")
	case errors.Is(err, ai.ErrRateLimited):
		response.Error(c, http.StatusTooManyRequests, response.CodeRateLimited, "request budget exhausted, try again later")
	case errors.Is(err, ai.ErrEmbeddingFailure), errors.Is(err, ai.ErrGenerationFailure):
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, "model call failed")
	case errors.Is(err, vectorstore.ErrStoreUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeStoreDown, "vector store unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
