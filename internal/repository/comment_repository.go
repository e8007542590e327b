package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"helpdesk-service/internal/model"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *CommentRepository) ListByTicket(ctx context.Context, ticketID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// LatestAuthorRole returns the role of the author of the most recent
// comment on the ticket. The second return value is false when the
// ticket has no comments.
func (r *CommentRepository) LatestAuthorRole(ctx context.Context, ticketID string) (model.UserRole, bool, error) {
	var role model.UserRole
	err := r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Select("users.role").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.ticket_id = ?", ticketID).
		Order("comments.created_at DESC").
		Limit(1).
		Scan(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if role == "" {
		return "", false, nil
	}
	return role, true, nil
}

type InternalNoteRepository struct {
	db *gorm.DB
}

func NewInternalNoteRepository(db *gorm.DB) *InternalNoteRepository {
	return &InternalNoteRepository{db: db}
}

func (r *InternalNoteRepository) Create(ctx context.Context, note *model.InternalNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *InternalNoteRepository) ListByTicket(ctx context.Context, ticketID string) ([]model.InternalNote, error) {
	var notes []model.InternalNote
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}
