// Package local is an in-process vector index using brute-force cosine
// distance. It is the default backend for single-machine corpora and
// the backend used by tests; production deployments can switch to the
// milvus adapter via configuration.
package local

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/logos-rag/backend/internal/vector"
)

type record struct {
	entry vector.Entry
	norm  float64
	seq   int
}

// Index stores vectors in memory behind a RWMutex. Query ties are
// broken by insertion order.
type Index struct {
	mu      sync.RWMutex
	records map[string]*record
	nextSeq int
}

func New() *Index {
	return &Index{records: make(map[string]*record)}
}

func (ix *Index) Upsert(_ context.Context, entries []vector.Entry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, e := range entries {
		if e.Key == "" {
			return errors.New("entry key must not be empty")
		}
		if len(e.Vector) == 0 {
			return errors.New("entry vector must not be empty")
		}

		rec, exists := ix.records[e.Key]
		if !exists {
			rec = &record{seq: ix.nextSeq}
			ix.nextSeq++
			ix.records[e.Key] = rec
		}
		rec.entry = e
		rec.norm = l2norm(e.Vector)
	}

	return nil
}

func (ix *Index) Query(_ context.Context, vec []float32, k int, allowedKeys []string) ([]vector.Match, error) {
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var allowed map[string]struct{}
	if allowedKeys != nil {
		allowed = make(map[string]struct{}, len(allowedKeys))
		for _, key := range allowedKeys {
			allowed[key] = struct{}{}
		}
	}

	queryNorm := l2norm(vec)

	type scored struct {
		match vector.Match
		seq   int
	}

	candidates := make([]scored, 0, len(ix.records))
	for key, rec := range ix.records {
		if allowed != nil {
			if _, ok := allowed[key]; !ok {
				continue
			}
		}
		sim := cosine(vec, rec.entry.Vector, queryNorm, rec.norm)
		candidates = append(candidates, scored{
			match: vector.Match{
				Key:      key,
				Distance: float32(1 - sim),
				Content:  rec.entry.Content,
				Metadata: rec.entry.Metadata,
			},
			seq: rec.seq,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].match.Distance != candidates[j].match.Distance {
			return candidates[i].match.Distance < candidates[j].match.Distance
		}
		return candidates[i].seq < candidates[j].seq
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	matches := make([]vector.Match, k)
	for i := 0; i < k; i++ {
		matches[i] = candidates[i].match
	}

	return matches, nil
}

func (ix *Index) Delete(_ context.Context, keys []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, key := range keys {
		delete(ix.records, key)
	}
	return nil
}

func (ix *Index) Count(_ context.Context) (int64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return int64(len(ix.records)), nil
}

func l2norm(v []float32) float64 {
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	dot := 0.0
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}
