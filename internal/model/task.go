package model

import "time"

// Suitable-time codes stored on a task, mapped to the planner's enum when a
// scheduling request is assembled.
const (
	SuitableMorning   = 1
	SuitableNoon      = 2
	SuitableAfternoon = 3
	SuitableEvening   = 4
	SuitableAnytime   = 5
)

// Task is a unit of work the scheduler can place.
type Task struct {
	ID               uint `gorm:"primaryKey"`
	UserID           uint `gorm:"index"`
	Title            string
	Description      string
	EstimatedMinutes int
	Priority         int // 1..4, higher is more urgent
	SuitableTime     int // one of the Suitable* codes
	Color            string
	IsCompleted      bool `gorm:"default:false"`
	Deadline         *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
