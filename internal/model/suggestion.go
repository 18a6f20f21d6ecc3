package model

import "time"

// Suggestion batch statuses.
const (
	SuggestionPending   = "pending"
	SuggestionConfirmed = "confirmed"
)

// Suggestion is one proposed slot from a scheduling run, persisted so the
// user can confirm the batch later from the bot or the API. BatchID groups
// the rows produced by a single run.
type Suggestion struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"index"`
	BatchID         string `gorm:"index"`
	TaskID          uint
	Title           string
	SuggestedAt     time.Time
	DurationMinutes int
	Reason          string
	Color           string
	IsRecurring     bool
	HasConflict     bool
	Status          string `gorm:"default:pending"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
