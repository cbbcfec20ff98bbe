package models

import "time"

// PatternKind identifies how a pattern was derived.
type PatternKind string

const (
	PatternTemporal   PatternKind = "TEMPORAL"
	PatternSequence   PatternKind = "SEQUENCE"
	PatternContinuity PatternKind = "CONTINUITY"
)

// Pattern is a recurring behavioural signature derived from activity history.
// Patterns are rebuilt wholesale and never patched in place.
//
// Only the fields relevant to Kind are populated: Weekday and Hour for
// TEMPORAL, Sequence for SEQUENCE, Project for CONTINUITY. Category is the
// category a suggestion produced from the pattern will carry.
type Pattern struct {
	Kind       PatternKind  `yaml:"kind" json:"kind"`
	Signature  string       `yaml:"signature" json:"signature"`
	Category   Category     `yaml:"category" json:"category"`
	Weekday    time.Weekday `yaml:"weekday" json:"weekday"`
	Hour       int          `yaml:"hour" json:"hour"`
	Sequence   []Category   `yaml:"sequence,omitempty" json:"sequence,omitempty"`
	Project    string       `yaml:"project,omitempty" json:"project,omitempty"`
	Support    int          `yaml:"support" json:"support"`
	Confidence float64      `yaml:"confidence" json:"confidence"`

	// Recent is true when at least one of the most recent occurrences of the
	// pattern's context produced this pattern's outcome.
	Recent bool `yaml:"recent" json:"recent"`

	// TypicalDuration is the median duration across the pattern's historical
	// occurrences.
	TypicalDuration time.Duration `yaml:"typical_duration" json:"typical_duration"`
	LastSeen        time.Time     `yaml:"last_seen" json:"last_seen"`
}

// Prefix returns the leading categories of a SEQUENCE pattern, i.e. the
// window that has to be observed before the pattern predicts its last element.
func (p Pattern) Prefix() []Category {
	if len(p.Sequence) == 0 {
		return nil
	}
	return p.Sequence[:len(p.Sequence)-1]
}

// PatternRef identifies the pattern a suggestion originated from.
type PatternRef struct {
	Kind       PatternKind `yaml:"kind" json:"kind"`
	Signature  string      `yaml:"signature" json:"signature"`
	Confidence float64     `yaml:"confidence" json:"confidence"`
}

// Ref returns a PatternRef pointing at p.
func (p Pattern) Ref() PatternRef {
	return PatternRef{Kind: p.Kind, Signature: p.Signature, Confidence: p.Confidence}
}
