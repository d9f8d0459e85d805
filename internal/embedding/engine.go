// Package embedding provides the text-to-vector function E used by the
// composite scorer and the embedding index. The core treats E as a pure
// (string) -> []float32 function of fixed dimension; the concrete
// realization here is a local, deterministic feature-extraction model
// with no network dependency, so index builds never require an external
// LLM provider.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call, so
	// callers can batch the dominant latency term of an index build.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality D of generated vectors.
	Dimensions() int

	// Name identifies the engine implementation, for observability.
	Name() string
}

// Config selects and parameterizes the embedding engine.
type Config struct {
	// Provider is the engine implementation to use. Only "local" is built
	// in; it never leaves the process.
	Provider string `yaml:"provider"`

	// Dimensions is the output vector size for the local provider.
	Dimensions int `yaml:"dimensions"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Provider: "local", Dimensions: 256}
}

// New constructs an Engine from configuration.
func New(cfg Config) (Engine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "New")
	defer timer.Stop()

	switch cfg.Provider {
	case "", "local":
		dims := cfg.Dimensions
		if dims <= 0 {
			dims = 256
		}
		return NewLocalEngine(dims), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (only \"local\" is built in)", cfg.Provider)
	}
}

// CosineSimilarity computes the cosine similarity between two vectors of
// equal length. Returns 0 for zero-magnitude vectors rather than erroring,
// since the composite scorer treats that as "no signal".
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
