package persistence

import (
	"time"

	"cloud.google.com/go/civil"
)

// Stored status values.
const (
	StatusIncomplete = "incomplete"
	StatusComplete   = "complete"
)

// Stored repeat types.
const (
	RepeatNone    = "none"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

// Todo represents a to-do row as stored by every data source.
//
// A row with IsDeleted set and RepeatType none is a tombstone for a single
// occurrence of a recurring series, not a visible to-do.
type Todo struct {
	ID         string
	SeriesID   string
	Title      string
	Content    *string
	DueDate    civil.Date
	Status     string
	RepeatType string
	RepeatDay  *int
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsTemplate reports whether the row is a live recurring template.
func (t Todo) IsTemplate() bool {
	return !t.IsDeleted && t.RepeatType != "" && t.RepeatType != RepeatNone
}

// IsTombstone reports whether the row marks a deleted occurrence.
func (t Todo) IsTombstone() bool {
	return t.IsDeleted
}
