package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"helpdesk-service/internal/model"
	"helpdesk-service/internal/repository"
)

// Notifier delivers best-effort notifications. Failures are logged and
// never propagated to the triggering operation.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// Keyword rules for creation-time auto-categorization. Network keywords
// are checked before hardware keywords; first match wins.
var categoryKeywords = []struct {
	keywords []string
	category string
}{
	{keywords: []string{"wifi", "internet"}, category: "Network"},
	{keywords: []string{"printer"}, category: "Hardware"},
}

type TicketService struct {
	ticketRepo     *repository.TicketRepository
	categoryRepo   *repository.CategoryRepository
	userRepo       *repository.UserRepository
	commentRepo    *repository.CommentRepository
	noteRepo       *repository.InternalNoteRepository
	feedbackRepo   *repository.FeedbackRepository
	attachmentRepo *repository.AttachmentRepository
	notifier       Notifier
	log            zerolog.Logger
}

func NewTicketService(
	ticketRepo *repository.TicketRepository,
	categoryRepo *repository.CategoryRepository,
	userRepo *repository.UserRepository,
	commentRepo *repository.CommentRepository,
	noteRepo *repository.InternalNoteRepository,
	feedbackRepo *repository.FeedbackRepository,
	attachmentRepo *repository.AttachmentRepository,
	notifier Notifier,
	log zerolog.Logger,
) *TicketService {
	return &TicketService{
		ticketRepo:     ticketRepo,
		categoryRepo:   categoryRepo,
		userRepo:       userRepo,
		commentRepo:    commentRepo,
		noteRepo:       noteRepo,
		feedbackRepo:   feedbackRepo,
		attachmentRepo: attachmentRepo,
		notifier:       notifier,
		log:            log,
	}
}

type CreateTicketInput struct {
	Title       string
	Description string
	Priority    string
	CategoryID  string
}

func (s *TicketService) Create(ctx context.Context, principal model.Principal, input CreateTicketInput) (*model.Ticket, error) {
	if !allowed(principal, opTicketCreate) {
		return nil, ErrPermissionDenied
	}

	fields := map[string]string{}
	if strings.TrimSpace(input.Title) == "" {
		fields["title"] = "must not be empty"
	}
	if strings.TrimSpace(input.Description) == "" {
		fields["description"] = "must not be empty"
	}

	priority := model.TicketPriorityMedium
	if input.Priority != "" {
		priority = model.TicketPriority(input.Priority)
		if !priority.Valid() {
			fields["priority"] = "must be one of low, medium, high, critical"
		}
	}

	var categoryID *uuid.UUID
	if input.CategoryID != "" {
		id, err := uuid.Parse(input.CategoryID)
		if err != nil {
			fields["category_id"] = "must be a valid id"
		} else if _, err := s.categoryRepo.GetByID(ctx, id.String()); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fields["category_id"] = "unknown category"
			} else {
				return nil, err
			}
		} else {
			categoryID = &id
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	creator, err := s.userRepo.GetByID(ctx, principal.UserID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if categoryID == nil {
		categoryID = s.autoCategorize(ctx, input.Description)
	}

	ticket := &model.Ticket{
		Title:       input.Title,
		Description: input.Description,
		Status:      model.TicketStatusOpen,
		Priority:    priority,
		CreatedByID: creator.ID,
		CategoryID:  categoryID,
	}

	// Auto-assignment happens at creation only, never retroactively.
	if categoryID != nil {
		category, err := s.categoryRepo.GetByID(ctx, categoryID.String())
		if err == nil && category.DefaultTechnicianID != nil {
			ticket.AssignedToID = category.DefaultTechnicianID
		}
	}

	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.notifyCreated(ctx, creator, ticket)

	return ticket, nil
}

// autoCategorize scans the description for known keywords and resolves
// the matching category. A missing category leaves the ticket untagged.
func (s *TicketService) autoCategorize(ctx context.Context, description string) *uuid.UUID {
	lower := strings.ToLower(description)
	for _, rule := range categoryKeywords {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				category, err := s.categoryRepo.GetByName(ctx, rule.category)
				if err != nil {
					return nil
				}
				return &category.ID
			}
		}
	}
	return nil
}

func (s *TicketService) notifyCreated(ctx context.Context, creator *model.User, ticket *model.Ticket) {
	if creator.Email == "" {
		return
	}
	subject := fmt.Sprintf("Ticket Created: %s", ticket.Title)
	body := fmt.Sprintf("Ticket #%s has been created.\n\nDescription: %s", ticket.ID, ticket.Description)
	if err := s.notifier.Notify(ctx, creator.Email, subject, body); err != nil {
		s.log.Warn().Err(err).Str("ticket_id", ticket.ID.String()).Msg("creation notification failed")
	}
}

func (s *TicketService) Get(ctx context.Context, principal model.Principal, id string) (*model.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !s.canAccessTicket(principal, ticket) {
		return nil, ErrPermissionDenied
	}

	return ticket, nil
}

// canAccessTicket implements read visibility: staff-side roles see every
// ticket, students only their own.
func (s *TicketService) canAccessTicket(principal model.Principal, ticket *model.Ticket) bool {
	if allowed(principal, opTicketReadAll) {
		return true
	}
	return ticket.CreatedByID == principal.UserID
}

type TicketDetails struct {
	Ticket               *model.Ticket        `json:"ticket"`
	Comments             []model.Comment      `json:"comments"`
	InternalNotes        []model.InternalNote `json:"internal_notes,omitempty"`
	Feedback             *model.Feedback      `json:"feedback,omitempty"`
	Attachments          []model.Attachment   `json:"attachments"`
	RecommendedSolutions []string             `json:"recommended_solutions"`
}

func (s *TicketService) GetDetails(ctx context.Context, principal model.Principal, id string) (*TicketDetails, error) {
	ticket, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	attachments, err := s.attachmentRepo.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &TicketDetails{
		Ticket:               ticket,
		Comments:             comments,
		Attachments:          attachments,
		RecommendedSolutions: RecommendedSolutions(ticket.Description),
	}

	feedback, err := s.feedbackRepo.GetByTicket(ctx, id)
	if err == nil {
		details.Feedback = feedback
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Internal notes are staff-only.
	if allowed(principal, opNoteRead) {
		notes, err := s.noteRepo.ListByTicket(ctx, id)
		if err != nil {
			return nil, err
		}
		details.InternalNotes = notes
	}

	return details, nil
}

func (s *TicketService) List(ctx context.Context, principal model.Principal, filter repository.TicketListFilter) ([]model.Ticket, error) {
	if !allowed(principal, opTicketReadAll) {
		userID := principal.UserID
		filter.CreatedByID = &userID
	}
	return s.ticketRepo.List(ctx, filter)
}

type UpdateTicketInput struct {
	Title       string
	Description string
	Priority    string
	CategoryID  string
}

func (s *TicketService) Update(ctx context.Context, principal model.Principal, id string, input UpdateTicketInput) (*model.Ticket, error) {
	if !allowed(principal, opTicketUpdate) {
		return nil, ErrPermissionDenied
	}

	ticket, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if strings.TrimSpace(input.Title) == "" {
		fields["title"] = "must not be empty"
	}
	if strings.TrimSpace(input.Description) == "" {
		fields["description"] = "must not be empty"
	}

	priority := ticket.Priority
	if input.Priority != "" {
		priority = model.TicketPriority(input.Priority)
		if !priority.Valid() {
			fields["priority"] = "must be one of low, medium, high, critical"
		}
	}

	categoryID := ticket.CategoryID
	if input.CategoryID != "" {
		parsed, err := uuid.Parse(input.CategoryID)
		if err != nil {
			fields["category_id"] = "must be a valid id"
		} else if _, err := s.categoryRepo.GetByID(ctx, parsed.String()); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fields["category_id"] = "unknown category"
			} else {
				return nil, err
			}
		} else {
			categoryID = &parsed
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	ticket.Title = input.Title
	ticket.Description = input.Description
	ticket.Priority = priority
	ticket.CategoryID = categoryID

	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	return ticket, nil
}

// TransitionStatus moves a ticket to a new status. Staff-side roles may
// set any status; the ticket creator may only reopen, which also clears
// the escalation flag. The first transition into resolved or closed
// stamps closed_at; a later reopen does not clear it.
func (s *TicketService) TransitionStatus(ctx context.Context, principal model.Principal, id string, newStatus model.TicketStatus) (*model.Ticket, error) {
	if !newStatus.Valid() {
		return nil, ErrInvalidInput
	}

	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	isCreatorReopen := ticket.CreatedByID == principal.UserID && newStatus == model.TicketStatusOpen

	if !allowed(principal, opTicketTransition) && !isCreatorReopen {
		return nil, ErrPermissionDenied
	}

	ticket.Status = newStatus
	if isCreatorReopen {
		ticket.IsEscalated = false
	}
	stampClosedAt(ticket, time.Now())

	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	return ticket, nil
}

// stampClosedAt sets closed_at on the first transition into resolved or
// closed. It never clears an existing stamp.
func stampClosedAt(ticket *model.Ticket, now time.Time) {
	if (ticket.Status == model.TicketStatusResolved || ticket.Status == model.TicketStatusClosed) && ticket.ClosedAt == nil {
		ticket.ClosedAt = &now
	}
}

// Assign sets the assignee. Any existing user is accepted; the assignee
// role is not required to be technician.
func (s *TicketService) Assign(ctx context.Context, principal model.Principal, id string, assigneeID uuid.UUID) (*model.Ticket, error) {
	if !allowed(principal, opTicketAssign) {
		return nil, ErrPermissionDenied
	}

	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := s.userRepo.GetByID(ctx, assigneeID.String()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ticket.AssignedToID = &assigneeID

	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	return ticket, nil
}

// Escalate raises the escalation flag. Idempotent.
func (s *TicketService) Escalate(ctx context.Context, principal model.Principal, id string) (*model.Ticket, error) {
	if !allowed(principal, opTicketEscalate) {
		return nil, ErrPermissionDenied
	}

	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ticket.IsEscalated = true

	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	return ticket, nil
}

// Reopen is the creator-only path back to open. It clears the escalation
// flag but leaves closed_at untouched.
func (s *TicketService) Reopen(ctx context.Context, principal model.Principal, id string) (*model.Ticket, error) {
	if !allowed(principal, opTicketReopen) {
		return nil, ErrPermissionDenied
	}

	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if ticket.CreatedByID != principal.UserID {
		return nil, ErrPermissionDenied
	}

	ticket.Status = model.TicketStatusOpen
	ticket.IsEscalated = false

	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	return ticket, nil
}

func (s *TicketService) AddComment(ctx context.Context, principal model.Principal, ticketID, text string) (*model.Comment, error) {
	if !allowed(principal, opCommentWrite) {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Fields: map[string]string{"text": "must not be empty"}}
	}

	ticket, err := s.Get(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		TicketID: ticket.ID,
		UserID:   principal.UserID,
		Text:     text,
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	return comment, nil
}

func (s *TicketService) ListComments(ctx context.Context, principal model.Principal, ticketID string) ([]model.Comment, error) {
	if _, err := s.Get(ctx, principal, ticketID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByTicket(ctx, ticketID)
}

func (s *TicketService) AddInternalNote(ctx context.Context, principal model.Principal, ticketID, text string) (*model.InternalNote, error) {
	if !allowed(principal, opNoteWrite) {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Fields: map[string]string{"text": "must not be empty"}}
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	note := &model.InternalNote{
		TicketID: ticket.ID,
		UserID:   principal.UserID,
		Text:     text,
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, err
	}

	return note, nil
}

func (s *TicketService) ListInternalNotes(ctx context.Context, principal model.Principal, ticketID string) ([]model.InternalNote, error) {
	if !allowed(principal, opNoteRead) {
		return nil, ErrPermissionDenied
	}
	if _, err := s.ticketRepo.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.noteRepo.ListByTicket(ctx, ticketID)
}

// AddFeedback records the one-off rating for a ticket. Only the creator
// may leave feedback and only once.
func (s *TicketService) AddFeedback(ctx context.Context, principal model.Principal, ticketID string, rating int, comment string) (*model.Feedback, error) {
	if !allowed(principal, opFeedbackWrite) {
		return nil, ErrPermissionDenied
	}
	if rating < 1 || rating > 5 {
		return nil, &ValidationError{Fields: map[string]string{"rating": "must be between 1 and 5"}}
	}

	ticket, err := s.Get(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}

	if ticket.CreatedByID != principal.UserID {
		return nil, ErrPermissionDenied
	}

	if _, err := s.feedbackRepo.GetByTicket(ctx, ticketID); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	feedback := &model.Feedback{
		TicketID: ticket.ID,
		Rating:   rating,
		Comment:  comment,
	}

	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		return nil, err
	}

	return feedback, nil
}

func (s *TicketService) AddAttachment(ctx context.Context, principal model.Principal, ticketID, fileName, filePath string) (*model.Attachment, error) {
	if !allowed(principal, opAttachmentWrite) {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(fileName) == "" || strings.TrimSpace(filePath) == "" {
		return nil, &ValidationError{Fields: map[string]string{"file": "file name and path are required"}}
	}

	ticket, err := s.Get(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}

	attachment := &model.Attachment{
		TicketID:     ticket.ID,
		FileName:     fileName,
		FilePath:     filePath,
		UploadedByID: principal.UserID,
	}

	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		return nil, err
	}

	return attachment, nil
}

// ApplyAction executes a single dashboard action against one ticket.
// Unknown action codes are no-ops.
func (s *TicketService) ApplyAction(ctx context.Context, principal model.Principal, action, ticketID string) (*model.Ticket, error) {
	if !allowed(principal, opDashboardActions) {
		return nil, ErrPermissionDenied
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch action {
	case "assign":
		userID := principal.UserID
		ticket.AssignedToID = &userID
	case "close":
		ticket.Status = model.TicketStatusClosed
		stampClosedAt(ticket, time.Now())
	case "escalate":
		ticket.IsEscalated = true
	default:
		return ticket, nil
	}

	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, err
	}

	return ticket, nil
}

// ApplyBulkAction executes a dashboard action over a selection. Bulk
// assign only touches unassigned tickets. Bulk close overwrites
// closed_at for every selected ticket, unlike the single-ticket path.
// Unknown action codes are no-ops.
func (s *TicketService) ApplyBulkAction(ctx context.Context, principal model.Principal, action string, ids []uuid.UUID) error {
	if !allowed(principal, opDashboardActions) {
		return ErrPermissionDenied
	}
	if len(ids) == 0 {
		return nil
	}

	switch action {
	case "assign":
		return s.ticketRepo.BulkAssignUnassigned(ctx, ids, principal.UserID)
	case "close":
		return s.ticketRepo.BulkClose(ctx, ids, time.Now())
	default:
		return nil
	}
}
