package vectorworker

import (
	"context"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

func sqrt32(v float32) float32 { return float32(math.Sqrt(float64(v))) }

// IndexEntry is one document's place in the index: its normalized
// embedding plus the metadata needed to present a search hit.
type IndexEntry struct {
	DocID    string         `json:"doc_id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Vector   []float32      `json:"vector"`
}

// Match is one ranked search result.
type Match struct {
	DocID      string         `json:"doc_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float32        `json:"similarity"`
}

// CosineIndex is the deterministic in-process fallback vector index: a map
// from doc_id to a normalized []float32 embedding, searched by brute-force
// cosine similarity. The
// index backend is documented as pluggable (faiss/hnswlib), but no pure-Go
// binding exists in the reachable ecosystem, so this is the shipped
// fallback rather than a silent gap.
type CosineIndex struct {
	mu      sync.RWMutex
	entries map[string]IndexEntry
}

// NewCosineIndex builds an empty index.
func NewCosineIndex() *CosineIndex {
	return &CosineIndex{entries: make(map[string]IndexEntry)}
}

// Upsert replaces or inserts a document's entry, keyed by doc_id.
func (idx *CosineIndex) Upsert(entry IndexEntry) {
	normalize(entry.Vector)
	idx.mu.Lock()
	idx.entries[entry.DocID] = entry
	idx.mu.Unlock()
}

// lookup returns the indexed entry for docID, if present.
func (idx *CosineIndex) lookup(docID string) (IndexEntry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.entries[docID]
	return entry, ok
}

// Len returns the number of indexed documents.
func (idx *CosineIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Search returns the top k matches for query ranked by cosine similarity
// descending.
func (idx *CosineIndex) Search(query []float32, k int) []Match {
	normalize(query)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]Match, 0, len(idx.entries))
	for _, entry := range idx.entries {
		matches = append(matches, Match{
			DocID:      entry.DocID,
			Metadata:   entry.Metadata,
			Similarity: cosine(query, entry.Vector),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float32
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	return dot
}

// SaveToFile persists the index as a metadata JSON document keyed by
// doc_id — the format spec.md describes as "{doc_id, text, metadata}
// keyed by label".
func (idx *CosineIndex) SaveToFile(path string) error {
	idx.mu.RLock()
	snapshot := make([]IndexEntry, 0, len(idx.entries))
	for _, entry := range idx.entries {
		snapshot = append(snapshot, entry)
	}
	idx.mu.RUnlock()

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "marshal vector index", err)
	}
	if err := os.WriteFile(path, raw, 0o640); err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "write vector index file", err)
	}
	return nil
}

// LoadFromFile replaces the index's contents with the entries in path.
func (idx *CosineIndex) LoadFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "read vector index file", err)
	}

	var entries []IndexEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "decode vector index file", err)
	}

	idx.mu.Lock()
	idx.entries = make(map[string]IndexEntry, len(entries))
	for _, entry := range entries {
		idx.entries[entry.DocID] = entry
	}
	idx.mu.Unlock()
	return nil
}

// Rebuild replaces the index's contents by embedding docs in one pass.
func Rebuild(ctx context.Context, idx *CosineIndex, embedder EmbedderCapability, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "embed documents", err)
	}
	if len(vectors) != len(docs) {
		return catalogerr.Wrap(catalogerr.KindInternal, "embedder returned mismatched vector count", nil)
	}

	for i, d := range docs {
		idx.Upsert(IndexEntry{DocID: d.DocID, Text: d.Text, Metadata: d.Metadata, Vector: vectors[i]})
	}
	return nil
}
