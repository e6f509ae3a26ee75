package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"bookwise/internal/app"
)

// FilesHandler streams PDFs out of the library so a frontend can render
// the page a citation points at.
type FilesHandler struct {
	lib app.Library
}

func NewFilesHandler(lib app.Library) *FilesHandler {
	return &FilesHandler{lib: lib}
}

// Serve resolves the wildcard path inside the library root and streams the
// file. Traversal outside the root is refused before touching the disk.
func (h *FilesHandler) Serve(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("filepath"), "/")
	abs, err := h.lib.Resolve(rel)
	if err != nil {
		writeServiceError(c, err, "resolve file failed")
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.File(abs)
}
