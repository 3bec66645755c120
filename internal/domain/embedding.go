// Package domain holds the contracts shared between the worker layers:
// the embedding model collaborator, vector math, and the error taxonomy.
package domain

import (
	"context"
	"math"
)

// Task prefixes required by the embedding model. The model was trained to
// disambiguate the retrieval role of a text via its prefix: embedding a
// document with the query prefix (or vice versa) silently degrades
// retrieval quality without raising an error.
const (
	PrefixDocument = "search_document: "
	PrefixQuery    = "search_query: "
)

// Model identity reported in every result record.
const (
	ModelName    = "nomic-embed-text-v1.5"
	ModelVersion = "1.5.0"
	// EmbeddingDim is the fixed output width downstream consumers depend on.
	EmbeddingDim = 768
)

// Backend is the opaque embedding model collaborator: text in, raw vectors
// out. Batching, prefixing and normalization are owned by the caller.
type Backend interface {
	// EmbedBatch maps each text to one vector, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector width reported by the model.
	Dimensions() int

	// Close releases resources held by the backend.
	Close() error
}

// Normalize scales v to unit L2 norm in place and returns it.
// Zero vectors are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// Cosine returns the cosine similarity of a and b.
// Returns 0 when either vector has zero norm or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
