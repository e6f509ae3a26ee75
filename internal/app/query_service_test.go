package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookwise/internal/ai"
	"bookwise/internal/library"
	"bookwise/internal/model"
)

type fakeCompleter struct {
	reply    string
	err      error
	messages []ai.ChatMessage
}

func (f *fakeCompleter) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	f.messages = messages
	return f.reply, f.err
}

type fakeHistory struct {
	turns     map[string][]model.Turn
	appendErr error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{turns: make(map[string][]model.Turn)}
}

func (f *fakeHistory) GetTurns(_ context.Context, sessionID string) ([]model.Turn, error) {
	return f.turns[sessionID], nil
}

func (f *fakeHistory) AppendTurn(_ context.Context, sessionID string, turn model.Turn) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.turns[sessionID] = append(f.turns[sessionID], turn)
	return nil
}

func (f *fakeHistory) DeleteTurns(_ context.Context, sessionID string) error {
	delete(f.turns, sessionID)
	return nil
}

func retrievedChunk(book string, page int, text string, sim float32) model.Retrieved {
	return model.Retrieved{
		Chunk:      model.Chunk{ID: model.ChunkID(book, page, text), BookPath: book, Text: text, FirstPage: page, LastPage: page},
		Similarity: sim,
	}
}

func newQueryFixture(t *testing.T, store *fakeStore, llm *fakeCompleter, history *fakeHistory, books ...string) *QueryService {
	t.Helper()
	lib := &fakeLibrary{root: t.TempDir()}
	for _, b := range books {
		writeBook(t, lib.root, b)
	}
	return NewQueryService(&fakeEmbedder{dims: 4}, store, llm, history, lib, 5, zerolog.Nop())
}

func TestAsk_AnswersWithCitations(t *testing.T) {
	store := newFakeStore()
	store.results = []model.Retrieved{
		retrievedChunk("ethics/kant.pdf", 3, "the categorical imperative", 0.9),
		retrievedChunk("ethics/kant.pdf", 3, "another chunk same page", 0.8),
		retrievedChunk("logic/frege.pdf", 7, "sense and reference", 0.7),
	}
	llm := &fakeCompleter{reply: "Kant grounds morality in duty."}
	history := newFakeHistory()
	svc := newQueryFixture(t, store, llm, history)

	answer, err := svc.Ask(context.Background(), AskInput{SessionID: "s1", Question: "What grounds morality?"})
	require.NoError(t, err)
	assert.Equal(t, "Kant grounds morality in duty.", answer.Text)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, model.Citation{Document: "ethics/kant.pdf", Page: 3}, answer.Sources[0])
	assert.Equal(t, model.Citation{Document: "logic/frege.pdf", Page: 7}, answer.Sources[1])

	// prompt carries the tagged excerpts
	last := llm.messages[len(llm.messages)-1]
	assert.Contains(t, last.Content, "[source: ethics/kant.pdf p.3]")
	assert.Contains(t, last.Content, "What grounds morality?")

	turns := history.turns["s1"]
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, model.RoleAssistant, turns[1].Role)
}

func TestAsk_ScopedToBook(t *testing.T) {
	store := newFakeStore()
	svc := newQueryFixture(t, store, &fakeCompleter{reply: "ok"}, newFakeHistory(), "a.pdf")

	_, err := svc.Ask(context.Background(), AskInput{SessionID: "s1", Question: "q", BookPath: "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", store.lastBook)
	assert.Equal(t, 5, store.lastK)
}

func TestAsk_BookOutsideLibrary(t *testing.T) {
	svc := newQueryFixture(t, newFakeStore(), &fakeCompleter{}, newFakeHistory())

	_, err := svc.Ask(context.Background(), AskInput{SessionID: "s1", Question: "q", BookPath: "ghost.pdf"})
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestAsk_UningestedBookAnswersWithoutSources(t *testing.T) {
	llm := &fakeCompleter{reply: "I do not know."}
	svc := newQueryFixture(t, newFakeStore(), llm, newFakeHistory(), "fresh.pdf")

	answer, err := svc.Ask(context.Background(), AskInput{SessionID: "s1", Question: "what is in it?", BookPath: "fresh.pdf"})
	require.NoError(t, err)
	require.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, "I do not know.", answer.Text)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	svc := newQueryFixture(t, newFakeStore(), &fakeCompleter{}, newFakeHistory())

	_, err := svc.Ask(context.Background(), AskInput{SessionID: "s1", Question: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Ask(context.Background(), AskInput{SessionID: "", Question: "q"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAsk_NoRetrievalStillAnswers(t *testing.T) {
	llm := &fakeCompleter{reply: "I do not know."}
	svc := newQueryFixture(t, newFakeStore(), llm, newFakeHistory())

	answer, err := svc.Ask(context.Background(), AskInput{SessionID: "s1", Question: "anything?"})
	require.NoError(t, err)
	require.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)

	last := llm.messages[len(llm.messages)-1]
	assert.Contains(t, last.Content, "No excerpts matched")
}

func TestAsk_GenerationFailureKeepsQuestionInHistory(t *testing.T) {
	llm := &fakeCompleter{err: ai.ErrGenerationFailure}
	history := newFakeHistory()
	svc := newQueryFixture(t, newFakeStore(), llm, history)

	_, err := svc.Ask(context.Background(), AskInput{SessionID: "s1", Question: "doomed question"})
	assert.ErrorIs(t, err, ai.ErrGenerationFailure)

	turns := history.turns["s1"]
	require.Len(t, turns, 1)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "doomed question", turns[0].Content)
}

func TestAsk_HistoryFlowsIntoPrompt(t *testing.T) {
	llm := &fakeCompleter{reply: "as I said before"}
	history := newFakeHistory()
	history.turns["s1"] = []model.Turn{
		{Role: model.RoleUser, Content: "who wrote the critique?"},
		{Role: model.RoleAssistant, Content: "Immanuel Kant."},
	}
	svc := newQueryFixture(t, newFakeStore(), llm, history)

	_, err := svc.Ask(context.Background(), AskInput{SessionID: "s1", Question: "when?"})
	require.NoError(t, err)

	var sawPrior bool
	for _, m := range llm.messages {
		if m.Role == model.RoleAssistant && strings.Contains(m.Content, "Immanuel Kant") {
			sawPrior = true
		}
	}
	assert.True(t, sawPrior)
}

func TestAsk_StoreError(t *testing.T) {
	store := newFakeStore()
	store.queryErr = errors.New("disk gone")
	svc := newQueryFixture(t, store, &fakeCompleter{}, newFakeHistory())

	_, err := svc.Ask(context.Background(), AskInput{SessionID: "s1", Question: "q"})
	assert.Error(t, err)
}

func TestCreateSession_UniqueIDs(t *testing.T) {
	svc := newQueryFixture(t, newFakeStore(), &fakeCompleter{}, newFakeHistory())
	a := svc.CreateSession()
	b := svc.CreateSession()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestHistoryAndClear(t *testing.T) {
	history := newFakeHistory()
	history.turns["s1"] = []model.Turn{{Role: model.RoleUser, Content: "q"}}
	svc := newQueryFixture(t, newFakeStore(), &fakeCompleter{}, history)

	turns, err := svc.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	require.NoError(t, svc.ClearHistory(context.Background(), "s1"))
	turns, err = svc.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	_, err = svc.History(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
