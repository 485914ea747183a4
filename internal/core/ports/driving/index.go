package driving

import (
	"context"
	"time"
)

// IndexService maintains the vector index.
type IndexService interface {
	// Build rebuilds the index from every stored embedding and publishes it.
	Build(ctx context.Context) (IndexInfo, error)

	// Extend adds embeddings not yet in the index and publishes the result.
	Extend(ctx context.Context) (IndexInfo, error)

	// Load restores the persisted snapshot and publishes it.
	Load(ctx context.Context) error

	// LoadOrBuild restores the snapshot, building when none exists.
	LoadOrBuild(ctx context.Context) (IndexInfo, error)

	// Info describes the published index and its staleness.
	Info(ctx context.Context) (IndexInfo, error)
}

// IndexInfo describes a published vector index.
type IndexInfo struct {
	SnapshotID string    `json:"snapshot_id"`
	Dimension  int       `json:"dimension"`
	Size       int       `json:"size"`
	CreatedAt  time.Time `json:"created_at"`

	// Stale is the number of stored embeddings the index does not hold.
	Stale int `json:"stale"`

	// Outdated reports that an embedding was rewritten after the snapshot was
	// taken. Extend only adds missing ids, so this needs a Build.
	Outdated bool `json:"outdated"`

	// SnapshotPath is where the index is persisted.
	SnapshotPath string `json:"snapshot_path,omitempty"`
}
