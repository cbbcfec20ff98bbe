package models

import "time"

// Todo is an accepted suggestion or user-created item owned by the todo
// store. Signature links it back to the pattern that suggested it so
// completion detection can look up the typical duration.
type Todo struct {
	ID          string     `yaml:"id" json:"id"`
	Text        string     `yaml:"text" json:"text"`
	Category    Category   `yaml:"category" json:"category"`
	Signature   string     `yaml:"signature,omitempty" json:"signature,omitempty"`
	CreatedAt   time.Time  `yaml:"created_at" json:"created_at"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Done reports whether the todo has been marked completed.
func (t Todo) Done() bool {
	return t.CompletedAt != nil
}

// Decision is the combined output handed to presentation layers.
type Decision struct {
	GeneratedAt time.Time            `yaml:"generated_at" json:"generated_at"`
	Suggestions []Suggestion         `yaml:"suggestions" json:"suggestions"`
	Debt        *TimeDebtEvent       `yaml:"debt,omitempty" json:"debt,omitempty"`
	Options     []CompensationOption `yaml:"options,omitempty" json:"options,omitempty"`
}
