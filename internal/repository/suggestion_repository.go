package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/model"
)

// SuggestionRepository stores proposed slots awaiting confirmation.
type SuggestionRepository struct {
	db *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

func (r *SuggestionRepository) CreateBatch(ctx context.Context, suggestions []model.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&suggestions).Error; err != nil {
		return fmt.Errorf("create suggestions: %w", err)
	}
	return nil
}

// FindBatch returns the pending rows of one batch owned by the user.
func (r *SuggestionRepository) FindBatch(ctx context.Context, userID uint, batchID string) ([]model.Suggestion, error) {
	var suggestions []model.Suggestion
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND batch_id = ? AND status = ?", userID, batchID, model.SuggestionPending).
		Order("suggested_at ASC").
		Find(&suggestions).Error; err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (r *SuggestionRepository) MarkConfirmed(ctx context.Context, userID uint, batchID string) error {
	if err := r.db.WithContext(ctx).Model(&model.Suggestion{}).
		Where("user_id = ? AND batch_id = ?", userID, batchID).
		Update("status", model.SuggestionConfirmed).Error; err != nil {
		return fmt.Errorf("confirm suggestions: %w", err)
	}
	return nil
}

// DeleteStalePending removes unconfirmed batches older than the cutoff.
func (r *SuggestionRepository) DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.SuggestionPending, cutoff).
		Delete(&model.Suggestion{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete stale suggestions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
