package cache

import (
	"errors"
	"math"
)

var (
	// ErrDimensionMismatch indicates two embeddings of different lengths were
	// compared, usually model/version skew between stored and incoming
	// vectors. It fails the single comparison, never the whole scan.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrZeroVector indicates an embedding with zero norm. Cosine similarity
	// is undefined for it; we fail the comparison rather than score it 0,
	// since a zero-norm embedding means the embedder misbehaved.
	ErrZeroVector = errors.New("embedding has zero norm")
)

// CosineSimilarity computes dot(a,b) / (|a|*|b|) for two equal-length
// vectors. The result is in [-1, 1] for well-formed nonzero vectors.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
