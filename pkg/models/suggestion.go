package models

// Priority ranks a suggestion for presentation.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Weight returns a sortable weight, higher is more urgent.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Suggestion is a confidence-scored todo proposal produced per generation
// cycle. It is never persisted as authoritative; accepting it creates a Todo.
type Suggestion struct {
	Text         string     `yaml:"text" json:"text"`
	Category     Category   `yaml:"category" json:"category"`
	Confidence   float64    `yaml:"confidence" json:"confidence"`
	Priority     Priority   `yaml:"priority" json:"priority"`
	Source       PatternRef `yaml:"source_pattern" json:"source_pattern"`
	RecencyBoost float64    `yaml:"recency_boost" json:"recency_boost"`
}
