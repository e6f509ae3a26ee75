package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bookwise/internal/ai"
	"bookwise/internal/model"
)

const systemPrompt = "You are a study assistant for a personal PDF library. " +
	"Answer the question using only the provided excerpts and the conversation so far. " +
	"Each excerpt is tagged like [source: path p.3]; mention the tags you relied on. " +
	"If the excerpts do not contain the answer, say you do not know. Do not make up facts."

// ChatCompleter produces one assistant reply for a message list.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// HistoryStore keeps per-session conversation turns.
type HistoryStore interface {
	GetTurns(ctx context.Context, sessionID string) ([]model.Turn, error)
	AppendTurn(ctx context.Context, sessionID string, turn model.Turn) error
	DeleteTurns(ctx context.Context, sessionID string) error
}

type AskInput struct {
	SessionID string
	Question  string
	BookPath  string // empty means search the whole library
}

// QueryService answers questions over the indexed library: embed the
// question, retrieve the closest chunks, and ask the LLM with those
// excerpts plus the session's recent turns.
type QueryService struct {
	embedder Embedder
	store    VectorStore
	llm      ChatCompleter
	history  HistoryStore
	lib      Library
	topK     int
	logger   zerolog.Logger
}

func NewQueryService(
	embedder Embedder,
	store VectorStore,
	llm ChatCompleter,
	history HistoryStore,
	lib Library,
	topK int,
	logger zerolog.Logger,
) *QueryService {
	if topK <= 0 {
		topK = 5
	}
	return &QueryService{
		embedder: embedder,
		store:    store,
		llm:      llm,
		history:  history,
		lib:      lib,
		topK:     topK,
		logger:   logger,
	}
}

// CreateSession mints a new conversation ID. No state is written until the
// first question arrives.
func (s *QueryService) CreateSession() string {
	return uuid.NewString()
}

// Ask runs one retrieval-augmented turn. The user's question is appended
// to the session history before the LLM call, so a failed generation still
// leaves the question in the transcript.
func (s *QueryService) Ask(ctx context.Context, input AskInput) (*model.Answer, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	question := strings.TrimSpace(input.Question)
	if sessionID == "" || question == "" {
		return nil, ErrInvalidInput
	}

	// The scope only has to exist in the library. A book that was never
	// ingested retrieves nothing and still gets an answer with no sources.
	bookPath := strings.TrimSpace(input.BookPath)
	if bookPath != "" {
		if _, err := s.lib.Resolve(bookPath); err != nil {
			return nil, err
		}
	}

	turns, err := s.history.GetTurns(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Msg("history unavailable, continuing without it")
		turns = nil
	}
	if err := s.history.AppendTurn(ctx, sessionID, model.Turn{Role: model.RoleUser, Content: question}); err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Msg("append user turn failed")
	}

	queryVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	retrieved, err := s.store.Query(ctx, queryVec, s.topK, bookPath)
	if err != nil {
		return nil, err
	}
	if len(retrieved) == 0 {
		s.logger.Debug().Str("session", sessionID).Str("book", bookPath).Msg("no chunks retrieved")
	}

	answerText, err := s.llm.Complete(ctx, buildPrompt(turns, retrieved, question))
	if err != nil {
		return nil, err
	}
	answerText = strings.TrimSpace(answerText)
	if answerText == "" {
		answerText = "The model returned an empty response."
	}

	if err := s.history.AppendTurn(ctx, sessionID, model.Turn{Role: model.RoleAssistant, Content: answerText}); err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Msg("append assistant turn failed")
	}

	return &model.Answer{
		Text:    answerText,
		Sources: citations(retrieved),
	}, nil
}

func (s *QueryService) History(ctx context.Context, sessionID string) ([]model.Turn, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	return s.history.GetTurns(ctx, sessionID)
}

func (s *QueryService) ClearHistory(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrInvalidInput
	}
	return s.history.DeleteTurns(ctx, sessionID)
}

func buildPrompt(turns []model.Turn, retrieved []model.Retrieved, question string) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(turns)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: systemPrompt})
	for _, t := range turns {
		messages = append(messages, ai.ChatMessage{Role: t.Role, Content: t.Content})
	}

	var sb strings.Builder
	if len(retrieved) > 0 {
		sb.WriteString("Excerpts:\n")
		for _, r := range retrieved {
			fmt.Fprintf(&sb, "---\n[source: %s p.%d]\n%s\n", r.BookPath, r.FirstPage, r.Text)
		}
		sb.WriteString("---\n\n")
	} else {
		sb.WriteString("No excerpts matched this question.\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)

	messages = append(messages, ai.ChatMessage{Role: "user", Content: sb.String()})
	return messages
}

// citations dedupes the retrieved chunks into (book, page) pairs, keeping
// retrieval order. Always non-nil so an empty answer serializes as [].
func citations(retrieved []model.Retrieved) []model.Citation {
	sources := make([]model.Citation, 0, len(retrieved))
	seen := make(map[model.Citation]struct{}, len(retrieved))
	for _, r := range retrieved {
		c := model.Citation{Document: r.BookPath, Page: r.FirstPage}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		sources = append(sources, c)
	}
	return sources
}
