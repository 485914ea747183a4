package domain

import (
	"fmt"
	"strings"
)

// SubjectKind identifies what a sentiment record is about.
type SubjectKind string

// Sentiment subject kinds.
const (
	SubjectDocument SubjectKind = "document"
	SubjectEntity   SubjectKind = "entity"
)

// IsValid returns true if the subject kind is recognised.
func (k SubjectKind) IsValid() bool {
	return k == SubjectDocument || k == SubjectEntity
}

// SentimentScores holds the four sentiment components.
// Compound is in [-1, 1]; the others are in [0, 1].
type SentimentScores struct {
	Pos      float64 `json:"pos"`
	Neg      float64 `json:"neg"`
	Neu      float64 `json:"neu"`
	Compound float64 `json:"compound"`
}

// Validate checks every component is within its range.
func (s SentimentScores) Validate() error {
	for name, v := range map[string]float64{"pos": s.Pos, "neg": s.Neg, "neu": s.Neu} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v outside [0,1]", ErrUnexpectedOutput, name, v)
		}
	}
	if s.Compound < -1 || s.Compound > 1 {
		return fmt.Errorf("%w: compound=%v outside [-1,1]", ErrUnexpectedOutput, s.Compound)
	}
	return nil
}

// SentimentLabel is the label/score output shape of classifier-style models.
type SentimentLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Scores maps a label/score pair onto the four-component form.
// POSITIVE puts the score in pos and +score in compound, NEGATIVE puts it in neg
// and -score in compound, anything else is treated as neutral.
func (l SentimentLabel) Scores() SentimentScores {
	switch strings.ToUpper(strings.TrimSpace(l.Label)) {
	case "POSITIVE", "POS", "LABEL_2":
		return SentimentScores{Pos: l.Score, Compound: l.Score}
	case "NEGATIVE", "NEG", "LABEL_0":
		return SentimentScores{Neg: l.Score, Compound: -l.Score}
	default:
		return SentimentScores{Neu: l.Score}
	}
}

// SentimentRecord is the stored sentiment for one subject.
// At most one record exists per (SubjectKind, SubjectID).
type SentimentRecord struct {
	ID          int64       `json:"id"`
	SubjectKind SubjectKind `json:"subject_kind"`
	SubjectID   int64       `json:"subject_id"`
	SentimentScores
}

// SentimentMarkStage returns the stage-mark key for a sentiment subject kind.
// Document and entity runs are tracked separately since their subject ids overlap.
func SentimentMarkStage(kind SubjectKind) StageName {
	if kind == SubjectEntity {
		return StageSentiment + ".entity"
	}
	return StageSentiment
}
