package ai

import (
	"context"
	"errors"
	"fmt"
	"math"

	"bookwise/internal/config"
)

// ErrEmbeddingFailure reports a local embedding-model error: malformed
// input, inference failure, or an output that does not match the configured
// dimensionality.
var ErrEmbeddingFailure = errors.New("embedding failure")

// Embedder maps text to fixed-dimension vectors. Identical text and model
// version must always produce the identical vector; mixing vectors from
// different providers or dimensions in one store is not supported.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// NewEmbedder builds the embedder named by the config. "onnx" runs a local
// ONNX model; "hash" is the dependency-free deterministic embedder used for
// development and tests.
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "onnx":
		emb, err := NewONNXEmbedder(cfg.ModelPath, cfg.ONNXSharedLibPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		return emb, nil
	case "hash":
		return NewHashEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// normalizeL2 scales the vector in place to unit length so that cosine
// similarity reduces to a dot product.
func normalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
}
