package model

import "time"

// Event sources.
const (
	EventSourceManual = "manual"
	EventSourceAI     = "ai"
)

// Event is a concrete calendar entry. Events in the requested range act as
// occupied intervals during scheduling; confirmed suggestions are inserted
// here as well.
type Event struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      uint  `gorm:"index:idx_event_user_start"`
	TaskID      *uint `gorm:"index"`
	Title       string
	StartTime   time.Time `gorm:"index:idx_event_user_start"`
	EndTime     time.Time
	Color       string
	Source      string `gorm:"default:manual"`
	IsRecurring bool   `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
