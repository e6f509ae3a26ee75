package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookwise/internal/model"
)

func unit(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot%dims] = 1
	return v
}

func makeChunks(bookPath string, texts ...string) []model.Chunk {
	chunks := make([]model.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = model.Chunk{
			ID:        model.ChunkID(bookPath, i, t),
			BookPath:  bookPath,
			Text:      t,
			Index:     i,
			FirstPage: i + 1,
			LastPage:  i + 1,
		}
	}
	return chunks
}

func TestQuery_EmptyStore(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	got, err := store.Query(context.Background(), unit(4, 0), 5, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = store.Query(context.Background(), unit(4, 0), 5, "missing.pdf")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpsertAndQuery_Scoped(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	chunks := makeChunks("ethics/kant.pdf", "duty and reason", "the categorical imperative")
	vectors := [][]float32{unit(4, 0), unit(4, 1)}
	require.NoError(t, store.Upsert(context.Background(), "ethics/kant.pdf", chunks, vectors))

	got, err := store.Query(context.Background(), unit(4, 1), 1, "ethics/kant.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "the categorical imperative", got[0].Text)
	assert.Equal(t, "ethics/kant.pdf", got[0].BookPath)
	assert.Equal(t, 2, got[0].FirstPage)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-4)
}

func TestQuery_ScopeNeverLeaksOtherBooks(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "a.pdf", makeChunks("a.pdf", "alpha"), [][]float32{unit(4, 0)}))
	require.NoError(t, store.Upsert(ctx, "b.pdf", makeChunks("b.pdf", "beta"), [][]float32{unit(4, 0)}))

	got, err := store.Query(ctx, unit(4, 0), 10, "a.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.pdf", got[0].BookPath)
}

func TestQuery_Unscoped_MergesAndOrders(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "a.pdf", makeChunks("a.pdf", "alpha"), [][]float32{unit(4, 0)}))
	require.NoError(t, store.Upsert(ctx, "b.pdf", makeChunks("b.pdf", "beta"), [][]float32{unit(4, 1)}))
	require.NoError(t, store.Upsert(ctx, "c.pdf", makeChunks("c.pdf", "gamma"), [][]float32{unit(4, 2)}))

	got, err := store.Query(ctx, unit(4, 1), 2, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b.pdf", got[0].BookPath)
	assert.GreaterOrEqual(t, got[0].Similarity, got[1].Similarity)
}

func TestQuery_ClampsKToCollectionSize(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "a.pdf", makeChunks("a.pdf", "only one"), [][]float32{unit(4, 0)}))

	got, err := store.Query(ctx, unit(4, 0), 25, "a.pdf")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUpsert_ReplacesSameID(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	chunks := makeChunks("a.pdf", "stable text")
	require.NoError(t, store.Upsert(ctx, "a.pdf", chunks, [][]float32{unit(4, 0)}))
	require.NoError(t, store.Upsert(ctx, "a.pdf", chunks, [][]float32{unit(4, 0)}))

	assert.Equal(t, 1, store.Count("a.pdf"))
}

func TestUpsert_CountMismatch(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	err = store.Upsert(context.Background(), "a.pdf", makeChunks("a.pdf", "x", "y"), [][]float32{unit(4, 0)})
	assert.Error(t, err)
}

func TestPersistence_AcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, "a.pdf", makeChunks("a.pdf", "survives restart"), [][]float32{unit(4, 3)}))

	reopened, err := New(dir)
	require.NoError(t, err)
	got, err := reopened.Query(ctx, unit(4, 3), 1, "a.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "survives restart", got[0].Text)
}

func TestReachable(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	assert.True(t, store.Reachable())
}
