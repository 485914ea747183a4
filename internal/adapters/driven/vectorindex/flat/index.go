package flat

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// checkEvery is how many vectors a search scans between context checks.
const checkEvery = 4096

// Index is a brute-force index: every search scans every vector.
// Vectors are stored row-major in one contiguous slice.
type Index struct {
	mu        sync.RWMutex
	dimension int
	ids       []int64
	data      []float32
}

// New creates an empty index of the given dimension.
func New(dimension int) *Index {
	return &Index{dimension: dimension}
}

// Factory adapts New to driven.VectorIndexFactory.
func Factory(dimension int) driven.VectorIndex {
	return New(dimension)
}

// Add appends a vector. Vectors of the wrong dimension are rejected.
func (idx *Index) Add(documentID int64, vec []float32) error {
	if len(vec) != idx.dimension {
		return fmt.Errorf("flat: %w: got %d, want %d", domain.ErrDimensionMismatch, len(vec), idx.dimension)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ids = append(idx.ids, documentID)
	idx.data = append(idx.data, vec...)
	return nil
}

// Search returns the k vectors nearest to query by L2 distance, nearest first.
// Ties are broken by insertion position.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("flat: query %w: got %d, want %d", domain.ErrDimensionMismatch, len(query), idx.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.ids)
	if n == 0 {
		return nil, domain.ErrEmptyIndex
	}

	type scored struct {
		pos  int
		dist float64
	}
	all := make([]scored, n)
	d := idx.dimension
	for i := 0; i < n; i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := idx.data[i*d : (i+1)*d]
		var sum float64
		for j, q := range query {
			diff := float64(row[j] - q)
			sum += diff * diff
		}
		all[i] = scored{pos: i, dist: sum}
	}

	sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })
	k = min(k, n)
	hits := make([]driven.VectorHit, k)
	for i := range hits {
		hits[i] = driven.VectorHit{DocumentID: idx.ids[all[i].pos], Distance: math.Sqrt(all[i].dist)}
	}
	return hits, nil
}

// Len returns the number of vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// Dimension returns the vector dimension.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// IDs returns a copy of the position -> document id mapping.
func (idx *Index) IDs() []int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return slices.Clone(idx.ids)
}

// Clone returns an independent copy.
func (idx *Index) Clone() driven.VectorIndex {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return &Index{
		dimension: idx.dimension,
		ids:       slices.Clone(idx.ids),
		data:      slices.Clone(idx.data),
	}
}

// vectors exposes the raw storage to the snapshot writer.
func (idx *Index) vectors() ([]int64, []float32) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.ids, idx.data
}
