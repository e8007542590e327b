package repository

import (
	"context"

	"gorm.io/gorm"

	"helpdesk-service/internal/model"
)

type FeedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(ctx context.Context, feedback *model.Feedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}

func (r *FeedbackRepository) GetByTicket(ctx context.Context, ticketID string) (*model.Feedback, error) {
	var feedback model.Feedback
	if err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&feedback).Error; err != nil {
		return nil, err
	}
	return &feedback, nil
}
