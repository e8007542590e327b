package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"helpdesk-service/internal/model"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepository) Update(ctx context.Context, ticket *model.Ticket) error {
	return r.db.WithContext(ctx).Save(ticket).Error
}

type TicketListFilter struct {
	Status       *model.TicketStatus
	Priority     *model.TicketPriority
	CreatedByID  *uuid.UUID
	AssignedToID *uuid.UUID
	// AssignedToOrUnassigned keeps tickets assigned to the given user
	// plus the unassigned pool (staff dashboard view).
	AssignedToOrUnassigned *uuid.UUID
	Query                  string
}

func (r *TicketRepository) List(ctx context.Context, filter TicketListFilter) ([]model.Ticket, error) {
	var tickets []model.Ticket
	query := r.db.WithContext(ctx).Model(&model.Ticket{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedByID)
	}
	if filter.AssignedToID != nil {
		query = query.Where("assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.AssignedToOrUnassigned != nil {
		query = query.Where("assigned_to_id = ? OR assigned_to_id IS NULL", *filter.AssignedToOrUnassigned)
	}
	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	if err := query.Order("created_at DESC").Find(&tickets).Error; err != nil {
		return nil, err
	}

	return tickets, nil
}

func (r *TicketRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Ticket, error) {
	var tickets []model.Ticket
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// BulkAssignUnassigned assigns the given user to every selected ticket
// that currently has no assignee. Already-assigned tickets are left alone.
func (r *TicketRepository) BulkAssignUnassigned(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("id IN ? AND assigned_to_id IS NULL", ids).
		Update("assigned_to_id", userID).Error
}

// BulkClose force-closes every selected ticket and overwrites closed_at,
// even when it was already set. This intentionally differs from the
// single-ticket transition, which stamps closed_at only once.
func (r *TicketRepository) BulkClose(ctx context.Context, ids []uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":    model.TicketStatusClosed,
			"closed_at": now,
		}).Error
}

type StatusCount struct {
	Status model.TicketStatus `json:"status"`
	Count  int64              `json:"count"`
}

func (r *TicketRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *TicketRepository) Count(ctx context.Context, status *model.TicketStatus) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.Ticket{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListCreatedSince returns creation timestamps for tickets created at or
// after the cutoff. Day bucketing happens in the report service.
func (r *TicketRepository) ListCreatedSince(ctx context.Context, cutoff time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("created_at >= ?", cutoff).
		Order("created_at ASC").
		Pluck("created_at", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}

type ExportRow struct {
	ID           uuid.UUID
	Title        string
	Status       string
	Priority     string
	CategoryName *string
	CreatedBy    string
	CreatedAt    time.Time
	ClosedAt     *time.Time
}

// ListForExport returns the flat ticket view used by the CSV export,
// with category and creator names resolved.
func (r *TicketRepository) ListForExport(ctx context.Context) ([]ExportRow, error) {
	var rows []ExportRow
	err := r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Select(`tickets.id, tickets.title, tickets.status, tickets.priority,
			categories.name AS category_name, users.username AS created_by,
			tickets.created_at, tickets.closed_at`).
		Joins("LEFT JOIN categories ON categories.id = tickets.category_id").
		Joins("JOIN users ON users.id = tickets.created_by_id").
		Order("tickets.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type ClosedTicketFilter struct {
	Status       *model.TicketStatus
	AssignedToID *uuid.UUID
}

// ListClosed returns tickets with a closed_at stamp, optionally narrowed
// by status or assignee. The two dashboard averages use different subsets.
func (r *TicketRepository) ListClosed(ctx context.Context, filter ClosedTicketFilter) ([]model.Ticket, error) {
	var tickets []model.Ticket
	query := r.db.WithContext(ctx).Model(&model.Ticket{}).Where("closed_at IS NOT NULL")

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AssignedToID != nil {
		query = query.Where("assigned_to_id = ?", *filter.AssignedToID)
	}

	if err := query.Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}
