package domain

// Query legs, used as keys of QueryResult.Errors.
const (
	LegSemantic   = "semantic"
	LegEntity     = "entity"
	LegGeospatial = "geospatial"
	LegSentiment  = "sentiment"
)

// QueryOptions tunes a federated query. Zero values fall back to settings.
type QueryOptions struct {
	// K is the number of nearest documents for the semantic leg.
	K int

	// RadiusKm is the geospatial search radius.
	RadiusKm float64
}

// QueryEntity is the entity recognised in the query text.
type QueryEntity struct {
	Value string     `json:"value"`
	Type  EntityType `json:"type"`

	// EntityID is the first stored entity matching (Value, Type), if any.
	EntityID *int64 `json:"entity_id,omitempty"`

	// Location holds resolved coordinates for place-like entities.
	Location *GeoPoint `json:"location,omitempty"`
}

// QueryResult bundles the independent result lists of a federated query.
// Each leg ranks internally; legs are never merged into a single score.
// A leg with no resolvable input contributes an empty list.
type QueryResult struct {
	Query      string           `json:"query"`
	Entity     *QueryEntity     `json:"entity,omitempty"`
	Semantic   []int64          `json:"semantic"`
	Entities   []EntityMatch    `json:"entity_matches"`
	Geospatial []GeoMatch       `json:"geospatial"`
	Sentiment  *SentimentScores `json:"sentiment"`

	// Errors maps a leg name to the failure that emptied it.
	Errors map[string]string `json:"errors,omitempty"`
}

// NewQueryResult returns a result with every list initialised empty.
func NewQueryResult(query string) QueryResult {
	return QueryResult{
		Query:      query,
		Semantic:   []int64{},
		Entities:   []EntityMatch{},
		Geospatial: []GeoMatch{},
	}
}

// SetError records a leg failure.
func (r *QueryResult) SetError(leg string, err error) {
	if err == nil {
		return
	}
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[leg] = err.Error()
}
