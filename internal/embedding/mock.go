package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"sync"
)

// mockDimensions matches the output size of text-embedding-3-small
const mockDimensions = 1536

// MockService provides a deterministic embedding implementation for tests and
// local development. Same input always produces the same unit-length vector.
// Texts registered as aliases of each other produce identical vectors, which
// makes semantic-match behavior reproducible without a real model.
type MockService struct {
	mu      sync.RWMutex
	aliases map[string]string
}

// NewMockService creates a new mock embedding service
func NewMockService() *MockService {
	return &MockService{
		aliases: make(map[string]string),
	}
}

// AliasAs makes text embed identically to canonical, simulating two phrasings
// the model would consider semantically equal
func (m *MockService) AliasAs(text, canonical string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases[text] = canonical
}

// GenerateEmbedding generates a deterministic fake embedding seeded by a
// SHA-256 hash of the (alias-resolved) text
func (m *MockService) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text provided")
	}

	m.mu.RLock()
	if canonical, ok := m.aliases[text]; ok {
		text = canonical
	}
	m.mu.RUnlock()

	hash := sha256.Sum256([]byte(text))

	embedding := make([]float64, mockDimensions)
	for i := range embedding {
		byteIndex := i % len(hash)
		hashValue := float64(hash[byteIndex])

		// Spread hash bytes over [-1, 1] with a little positional variation
		embedding[i] = (hashValue - 127.5) / 127.5
		embedding[i] += float64(i%100) / 10000.0
	}

	// Normalize to unit length, as real embedding models do
	var norm float64
	for _, val := range embedding {
		norm += val * val
	}
	norm = math.Sqrt(norm)

	if norm > 0 {
		for i := range embedding {
			embedding[i] /= norm
		}
	}

	return embedding, nil
}
