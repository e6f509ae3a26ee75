package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookwise/internal/app"
	"bookwise/internal/model"
	"bookwise/internal/transport/http/response"
)

type ChatHandler struct {
	queryService *app.QueryService
}

type AskRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Question  string `json:"question" binding:"required"`
	BookPath  string `json:"book_path"`
}

func NewChatHandler(queryService *app.QueryService) *ChatHandler {
	return &ChatHandler{queryService: queryService}
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	response.OK(c, gin.H{"session_id": h.queryService.CreateSession()})
}

// Ask answers a question over the indexed library, optionally scoped to a
// single book.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	answer, err := h.queryService.Ask(c.Request.Context(), app.AskInput{
		SessionID: req.SessionID,
		Question:  req.Question,
		BookPath:  req.BookPath,
	})
	if err != nil {
		writeServiceError(c, err, "ask failed")
		return
	}
	response.OK(c, answer)
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Query("session_id")
	turns, err := h.queryService.History(c.Request.Context(), sessionID)
	if err != nil {
		writeServiceError(c, err, "get history failed")
		return
	}
	if turns == nil {
		turns = []model.Turn{}
	}
	response.OK(c, gin.H{"session_id": sessionID, "turns": turns})
}

func (h *ChatHandler) ClearHistory(c *gin.Context) {
	sessionID := c.Query("session_id")
	if err := h.queryService.ClearHistory(c.Request.Context(), sessionID); err != nil {
		writeServiceError(c, err, "clear history failed")
		return
	}
	response.OK(c, gin.H{"session_id": sessionID, "cleared": true})
}
