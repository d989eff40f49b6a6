package vectorworker

import (
	"context"
	"hash/fnv"
)

// EmbedderCapability turns a batch of document texts into normalized
// embeddings. The real backend (OpenCLIP, a local sentence-transformer
// model, whatever the operator has configured) is out of scope for this
// package; this interface is the seam it attaches to so the drain loop
// never depends on a concrete model runtime.
type EmbedderCapability interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}

// HashEmbedder is a deterministic, dependency-free stand-in used when no
// real embedding backend is configured. It projects each text into a
// fixed-width vector via FNV hashing of overlapping trigrams, then
// L2-normalizes — good enough to exercise the index and drain loop in
// tests and in environments with no embedding capability attached, but not
// a semantically meaningful embedding.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder builds a HashEmbedder producing vectors of width dim.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim < 1 {
		dim = 64
	}
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Dim() int { return h.dim }

func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.embedOne(text)
	}
	return out, nil
}

func (h *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, h.dim)
	if text == "" {
		return vec
	}

	trigramLen := 3
	for i := 0; i < len(text); i++ {
		end := i + trigramLen
		if end > len(text) {
			end = len(text)
		}
		gram := text[i:end]

		sum := fnv.New32a()
		_, _ = sum.Write([]byte(gram))
		bucket := int(sum.Sum32()) % h.dim
		if bucket < 0 {
			bucket += h.dim
		}
		vec[bucket]++
	}

	normalize(vec)
	return vec
}

func normalize(vec []float32) {
	var sumSq float32
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq == 0 {
		return
	}
	norm := sqrt32(sumSq)
	for i := range vec {
		vec[i] /= norm
	}
}
