package domain

import (
	"strings"
	"time"
)

// EntityType is a named-entity tag drawn from a fixed set.
type EntityType string

// Known entity types.
const (
	EntityPerson EntityType = "PERSON"
	EntityOrg    EntityType = "ORG"
	EntityLoc    EntityType = "LOC"
	EntityGPE    EntityType = "GPE"
	EntityFac    EntityType = "FAC"
	EntityNORP   EntityType = "NORP"
	EntityMisc   EntityType = "MISC"
)

// ParseEntityType normalises a raw model tag into an EntityType.
// BIO/BIOES prefixes are stripped ("I-LOC" -> LOC) and CoNLL "PER" maps to PERSON.
// Unknown tags map to MISC.
func ParseEntityType(tag string) EntityType {
	t := strings.ToUpper(strings.TrimSpace(tag))
	if len(t) > 2 && t[1] == '-' {
		switch t[0] {
		case 'B', 'I', 'E', 'S', 'L', 'U':
			t = t[2:]
		}
	}

	switch t {
	case "PER", "PERSON":
		return EntityPerson
	case "ORG", "ORGANIZATION":
		return EntityOrg
	case "LOC", "LOCATION":
		return EntityLoc
	case "GPE":
		return EntityGPE
	case "FAC", "FACILITY":
		return EntityFac
	case "NORP":
		return EntityNORP
	default:
		return EntityMisc
	}
}

// IsPlaceLike returns true if entities of this type can be geocoded.
func (t EntityType) IsPlaceLike() bool {
	return t == EntityLoc || t == EntityGPE || t == EntityFac
}

// String returns the string representation.
func (t EntityType) String() string {
	return string(t)
}

// PlaceLikeTypes returns the entity types handled by the geocoder.
func PlaceLikeTypes() []EntityType {
	return []EntityType{EntityLoc, EntityGPE, EntityFac}
}

// Entity is a typed span of a document's cleaned text.
// Offsets are character (rune) offsets into the cleaned text used for extraction,
// never into the raw body.
type Entity struct {
	ID         int64      `json:"id"`
	DocumentID int64      `json:"document_id"`
	Type       EntityType `json:"entity_type"`
	Value      string     `json:"entity_value"`
	Start      int        `json:"start_offset"`
	End        int        `json:"end_offset"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RawTag is one token-level tag as returned by an entity extraction model.
type RawTag struct {
	Type  string  `json:"type"`
	Value string  `json:"value"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score,omitempty"`
}

// EntityMatch is one row of an exact-match entity search.
type EntityMatch struct {
	EntityID   int64      `json:"entity_id"`
	DocumentID int64      `json:"document_id"`
	Value      string     `json:"entity_value"`
	Type       EntityType `json:"entity_type"`
}
