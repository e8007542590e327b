package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"helpdesk-service/internal/model"
	"helpdesk-service/internal/repository"
)

type fakeNotifier struct {
	calls []string
	err   error
}

func (n *fakeNotifier) Notify(_ context.Context, recipient, subject, _ string) error {
	n.calls = append(n.calls, recipient+": "+subject)
	return n.err
}

type testEnv struct {
	db       *gorm.DB
	tickets  *TicketService
	notifier *fakeNotifier

	ticketRepo   *repository.TicketRepository
	categoryRepo *repository.CategoryRepository
	userRepo     *repository.UserRepository
	commentRepo  *repository.CommentRepository
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Ticket{},
		&model.Comment{},
		&model.InternalNote{},
		&model.Feedback{},
		&model.Attachment{},
	))

	ticketRepo := repository.NewTicketRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	noteRepo := repository.NewInternalNoteRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	notifier := &fakeNotifier{}
	tickets := NewTicketService(
		ticketRepo, categoryRepo, userRepo, commentRepo, noteRepo,
		feedbackRepo, attachmentRepo, notifier, zerolog.Nop(),
	)

	return &testEnv{
		db:           db,
		tickets:      tickets,
		notifier:     notifier,
		ticketRepo:   ticketRepo,
		categoryRepo: categoryRepo,
		userRepo:     userRepo,
		commentRepo:  commentRepo,
	}
}

func (e *testEnv) createUser(t *testing.T, username string, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, e.userRepo.Create(context.Background(), user))
	return user
}

func (e *testEnv) createCategory(t *testing.T, name string, defaultTechnician *model.User) *model.Category {
	t.Helper()
	category := &model.Category{Name: name}
	if defaultTechnician != nil {
		category.DefaultTechnicianID = &defaultTechnician.ID
	}
	require.NoError(t, e.categoryRepo.Create(context.Background(), category))
	return category
}

func principalFor(user *model.User) model.Principal {
	return model.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}
}

func (e *testEnv) reloadTicket(t *testing.T, id uuid.UUID) *model.Ticket {
	t.Helper()
	ticket, err := e.ticketRepo.GetByID(context.Background(), id.String())
	require.NoError(t, err)
	return ticket
}

// insertTicket writes a ticket directly, bypassing creation-time rules,
// for report and transition fixtures.
func (e *testEnv) insertTicket(t *testing.T, ticket *model.Ticket) *model.Ticket {
	t.Helper()
	require.NoError(t, e.db.Create(ticket).Error)
	return ticket
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	require.ErrorIs(t, err, ErrInvalidInput)
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, field)
}

func hoursAgo(h int) time.Time {
	return time.Now().Add(-time.Duration(h) * time.Hour)
}
