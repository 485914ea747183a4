package domain

import "time"

// Document represents a segmented newspaper article.
// It is owned by the corpus store: created once by ingestion, never deleted
// by the enrichment pipeline, and only extended through derived-signal tables.
type Document struct {
	// ID is the stable primary key. Batch cursors order by it.
	ID int64 `json:"id"`

	// ParentID links to the source issue (newspaper) the article was cut from.
	ParentID *int64 `json:"parent_id,omitempty"`

	// Title is the article headline.
	Title string `json:"title"`

	// Body is the article text as produced by segmentation.
	Body string `json:"body"`

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the document row was last touched.
	UpdatedAt time.Time `json:"updated_at"`
}

// TextItem is the unit of work handed to enrichment stages: a subject id and
// the text to transform.
type TextItem struct {
	// ID is the subject id (document id or entity id).
	ID int64

	// DocumentID is the owning document. Equal to ID for document subjects.
	DocumentID int64

	// Text is the input to the model call.
	Text string
}

// StageName identifies an enrichment stage.
type StageName string

// Available enrichment stages.
const (
	StageEntities   StageName = "entities"
	StageSentiment  StageName = "sentiment"
	StageTopics     StageName = "topics"
	StageGeocode    StageName = "geocode"
	StageEmbeddings StageName = "embeddings"
)

// AllStages lists the stages in their conventional run order.
// Stages are independent; the order only matters for humans reading logs.
func AllStages() []StageName {
	return []StageName{StageEntities, StageSentiment, StageTopics, StageGeocode, StageEmbeddings}
}

// IsValid returns true if the stage name is recognised.
func (s StageName) IsValid() bool {
	switch s {
	case StageEntities, StageSentiment, StageTopics, StageGeocode, StageEmbeddings:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s StageName) String() string {
	return string(s)
}

// MarkStatus is the outcome recorded for a processed subject.
type MarkStatus string

// Mark statuses.
const (
	// MarkDone means the subject produced at least one row.
	MarkDone MarkStatus = "done"

	// MarkEmpty means the model ran but produced nothing to store.
	MarkEmpty MarkStatus = "empty"

	// MarkNotFound means the geocoder explicitly reported no match.
	MarkNotFound MarkStatus = "not_found"
)
