package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/model"
)

// EventRepository handles calendar events.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListBetween returns the user's events overlapping [from, to), ordered by
// start time. These become the occupied intervals of a scheduling request.
func (r *EventRepository) ListBetween(ctx context.Context, userID uint, from, to time.Time) ([]model.Event, error) {
	var events []model.Event
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND start_time < ? AND end_time > ?", userID, to, from).
		Order("start_time ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// CreateBatch inserts a confirmed suggestion batch as events atomically.
func (r *EventRepository) CreateBatch(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&events).Error; err != nil {
		return fmt.Errorf("create events: %w", err)
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, userID, eventID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, eventID).
		Delete(&model.Event{}).Error; err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
