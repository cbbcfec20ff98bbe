package models

import "time"

// Category classifies what kind of work an activity record represents.
type Category string

const (
	CategoryCode          Category = "CODE"
	CategoryCommunication Category = "COMMUNICATION"
	CategoryDocument      Category = "DOCUMENT"
	CategoryBrowser       Category = "BROWSER"
	CategoryMeeting       Category = "MEETING"
	CategoryBreak         Category = "BREAK"
	CategoryOther         Category = "OTHER"
)

// Categories lists every valid Category in declaration order.
var Categories = []Category{
	CategoryCode,
	CategoryCommunication,
	CategoryDocument,
	CategoryBrowser,
	CategoryMeeting,
	CategoryBreak,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// MaxRecordSeconds bounds DurationSeconds. One tick never spans more than a
// day; anything larger is a monitor bug.
const MaxRecordSeconds = 24 * 60 * 60

// ActivityRecord is one immutable monitoring tick produced by the external
// activity monitor. DurationSeconds is the time elapsed since the previous
// record. Project is optional and carries the project or file identifier the
// tick was attributed to.
type ActivityRecord struct {
	Timestamp         time.Time `yaml:"timestamp" json:"timestamp"`
	DurationSeconds   int64     `yaml:"duration_seconds" json:"duration_seconds"`
	Application       string    `yaml:"application" json:"application"`
	WindowTitleHash   string    `yaml:"window_title_hash,omitempty" json:"window_title_hash,omitempty"`
	Category          Category  `yaml:"category" json:"category"`
	ProductivityScore float64   `yaml:"productivity_score" json:"productivity_score"`
	Project           string    `yaml:"project,omitempty" json:"project,omitempty"`
}

// Duration returns DurationSeconds as a time.Duration.
func (r ActivityRecord) Duration() time.Duration {
	return time.Duration(r.DurationSeconds) * time.Second
}
