package driven

import (
	"context"
	"time"
)

// VectorIndex is an in-memory nearest-neighbour index over document vectors.
// Implementations must reject vectors of the wrong dimension on Add.
type VectorIndex interface {
	// Add inserts a vector for the given document id.
	Add(documentID int64, vec []float32) error

	// Search finds the k nearest neighbours to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Dimension returns the configured vector dimension.
	Dimension() int

	// IDs returns the position -> document id mapping.
	IDs() []int64

	// Clone returns an independent copy that can be extended without affecting this one.
	Clone() VectorIndex
}

// VectorHit represents a nearest-neighbour result.
type VectorHit struct {
	// DocumentID is the matched document.
	DocumentID int64

	// Distance is the L2 distance to the query.
	Distance float64
}

// SnapshotMeta describes a persisted index snapshot.
type SnapshotMeta struct {
	ID        string
	Dimension int
	Count     int
	CreatedAt time.Time
}

// SnapshotStore persists and restores a vector index.
// Save must never leave a partially written snapshot behind.
type SnapshotStore interface {
	// Save writes the index blob and its ordered id list.
	Save(idx VectorIndex, meta SnapshotMeta) error

	// Load restores an index and its metadata.
	// Returns domain.ErrNotFound when no snapshot exists.
	Load() (VectorIndex, SnapshotMeta, error)

	// Path returns the snapshot location.
	Path() string
}

// VectorIndexFactory creates empty indexes of a fixed dimension.
type VectorIndexFactory func(dimension int) VectorIndex
