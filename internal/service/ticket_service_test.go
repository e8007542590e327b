package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk-service/internal/model"
	"helpdesk-service/internal/repository"
)

func TestCreateAutoCategorizesNetworkAndAssignsTechnician(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	tech := env.createUser(t, "tech_net", model.RoleTechnician)
	network := env.createCategory(t, "Network", tech)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "No connectivity",
		Description: "My wifi is down since this morning",
	})
	require.NoError(t, err)

	require.NotNil(t, ticket.CategoryID)
	assert.Equal(t, network.ID, *ticket.CategoryID)
	require.NotNil(t, ticket.AssignedToID)
	assert.Equal(t, tech.ID, *ticket.AssignedToID)
	assert.Equal(t, model.TicketStatusOpen, ticket.Status)
	assert.Equal(t, model.TicketPriorityMedium, ticket.Priority)
	assert.Nil(t, ticket.ClosedAt)
}

func TestCreateAutoCategorizesHardware(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	hardware := env.createCategory(t, "Hardware", nil)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Printing broken",
		Description: "The PRINTER on floor 2 jams constantly",
	})
	require.NoError(t, err)

	require.NotNil(t, ticket.CategoryID)
	assert.Equal(t, hardware.ID, *ticket.CategoryID)
	assert.Nil(t, ticket.AssignedToID)
}

func TestCreateNetworkKeywordsCheckedFirst(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	network := env.createCategory(t, "Network", nil)
	env.createCategory(t, "Hardware", nil)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Printer offline",
		Description: "The printer lost internet access",
	})
	require.NoError(t, err)

	require.NotNil(t, ticket.CategoryID)
	assert.Equal(t, network.ID, *ticket.CategoryID)
}

func TestCreateNoKeywordMatchLeavesCategoryUnset(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	env.createCategory(t, "Network", nil)
	env.createCategory(t, "Hardware", nil)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Furniture",
		Description: "Need a new chair",
	})
	require.NoError(t, err)
	assert.Nil(t, ticket.CategoryID)
}

func TestCreateKeywordMatchWithoutCategoryRecord(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)

	// No Network category exists, so the keyword rule cannot resolve.
	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Wifi down",
		Description: "wifi is not working in the library",
	})
	require.NoError(t, err)
	assert.Nil(t, ticket.CategoryID)
}

func TestCreateExplicitCategorySkipsKeywordRules(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	env.createCategory(t, "Network", nil)
	software := env.createCategory(t, "Software", nil)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "App crash",
		Description: "The wifi portal app crashes on login",
		CategoryID:  software.ID.String(),
	})
	require.NoError(t, err)

	require.NotNil(t, ticket.CategoryID)
	assert.Equal(t, software.ID, *ticket.CategoryID)
}

func TestCreateValidation(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)

	_, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "  ",
		Description: "",
		Priority:    "urgent",
	})
	requireValidation(t, err, "title")
	requireValidation(t, err, "description")
	requireValidation(t, err, "priority")
}

func TestCreateNotificationFailureIsSwallowed(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	env.notifier.err = assert.AnError

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Anything",
		Description: "does not matter",
	})
	require.NoError(t, err)
	assert.NotNil(t, ticket)
	assert.Len(t, env.notifier.calls, 1)
}

func TestTransitionStampsClosedAtOnce(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	tech := env.createUser(t, "tech", model.RoleTechnician)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Broken screen",
		Description: "Cracked display",
	})
	require.NoError(t, err)
	require.Nil(t, ticket.ClosedAt)

	resolved, err := env.tickets.TransitionStatus(context.Background(), principalFor(tech), ticket.ID.String(), model.TicketStatusResolved)
	require.NoError(t, err)
	require.NotNil(t, resolved.ClosedAt)
	firstStamp := *resolved.ClosedAt

	closed, err := env.tickets.TransitionStatus(context.Background(), principalFor(tech), ticket.ID.String(), model.TicketStatusClosed)
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	assert.True(t, closed.ClosedAt.Equal(firstStamp), "closed_at must not be re-stamped")
}

func TestReopenKeepsClosedAtAndClearsEscalation(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	tech := env.createUser(t, "tech", model.RoleTechnician)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Slow laptop",
		Description: "Takes minutes to boot",
	})
	require.NoError(t, err)

	_, err = env.tickets.Escalate(context.Background(), principalFor(tech), ticket.ID.String())
	require.NoError(t, err)
	closed, err := env.tickets.TransitionStatus(context.Background(), principalFor(tech), ticket.ID.String(), model.TicketStatusClosed)
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	stamp := *closed.ClosedAt

	reopened, err := env.tickets.Reopen(context.Background(), principalFor(student), ticket.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusOpen, reopened.Status)
	assert.False(t, reopened.IsEscalated)
	require.NotNil(t, reopened.ClosedAt)
	assert.True(t, reopened.ClosedAt.Equal(stamp), "reopen must not clear closed_at")
}

func TestTransitionStatusPermissions(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	other := env.createUser(t, "other", model.RoleStudent)
	tech := env.createUser(t, "tech", model.RoleTechnician)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Account locked",
		Description: "Cannot log in",
	})
	require.NoError(t, err)

	_, err = env.tickets.TransitionStatus(context.Background(), principalFor(student), ticket.ID.String(), model.TicketStatusResolved)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// The creator may move their ticket back to open even though they
	// hold no staff capability.
	_, err = env.tickets.TransitionStatus(context.Background(), principalFor(tech), ticket.ID.String(), model.TicketStatusClosed)
	require.NoError(t, err)
	reopened, err := env.tickets.TransitionStatus(context.Background(), principalFor(student), ticket.ID.String(), model.TicketStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusOpen, reopened.Status)

	_, err = env.tickets.TransitionStatus(context.Background(), principalFor(other), ticket.ID.String(), model.TicketStatusOpen)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.tickets.TransitionStatus(context.Background(), principalFor(tech), ticket.ID.String(), "archived")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssignAcceptsAnyUserRole(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	staff := env.createUser(t, "staff", model.RoleStaff)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Projector",
		Description: "Projector flickers",
	})
	require.NoError(t, err)

	// The assignee is not required to be a technician.
	assigned, err := env.tickets.Assign(context.Background(), principalFor(staff), ticket.ID.String(), student.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedToID)
	assert.Equal(t, student.ID, *assigned.AssignedToID)
}

func TestEscalateIsIdempotent(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	tech := env.createUser(t, "tech", model.RoleTechnician)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Email bounce",
		Description: "Mails keep bouncing",
	})
	require.NoError(t, err)

	first, err := env.tickets.Escalate(context.Background(), principalFor(tech), ticket.ID.String())
	require.NoError(t, err)
	assert.True(t, first.IsEscalated)

	second, err := env.tickets.Escalate(context.Background(), principalFor(tech), ticket.ID.String())
	require.NoError(t, err)
	assert.True(t, second.IsEscalated)
}

func TestApplyActionCloseStampsOnlyWhenUnset(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	tech := env.createUser(t, "tech", model.RoleTechnician)

	stamp := hoursAgo(5)
	ticket := env.insertTicket(t, &model.Ticket{
		Title:       "Old resolved",
		Description: "resolved a while ago",
		Status:      model.TicketStatusResolved,
		Priority:    model.TicketPriorityMedium,
		CreatedByID: student.ID,
		CreatedAt:   hoursAgo(10),
		ClosedAt:    &stamp,
	})

	closed, err := env.tickets.ApplyAction(context.Background(), principalFor(tech), "close", ticket.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.True(t, closed.ClosedAt.Equal(stamp), "single close must not overwrite an existing stamp")
}

func TestApplyActionUnknownCodeIsNoop(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	tech := env.createUser(t, "tech", model.RoleTechnician)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Misc",
		Description: "something",
	})
	require.NoError(t, err)

	result, err := env.tickets.ApplyAction(context.Background(), principalFor(tech), "archive", ticket.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusOpen, result.Status)
	assert.Nil(t, result.AssignedToID)
	assert.False(t, result.IsEscalated)
}

func TestBulkCloseOverwritesClosedAt(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	tech := env.createUser(t, "tech", model.RoleTechnician)

	oldStamp := hoursAgo(48)
	stamped := env.insertTicket(t, &model.Ticket{
		Title:       "Previously resolved",
		Description: "already carries a stamp",
		Status:      model.TicketStatusResolved,
		Priority:    model.TicketPriorityMedium,
		CreatedByID: student.ID,
		CreatedAt:   hoursAgo(72),
		ClosedAt:    &oldStamp,
	})
	fresh := env.insertTicket(t, &model.Ticket{
		Title:       "Still open",
		Description: "no stamp yet",
		Status:      model.TicketStatusOpen,
		Priority:    model.TicketPriorityMedium,
		CreatedByID: student.ID,
	})

	// Empty selection is a no-op.
	err := env.tickets.ApplyBulkAction(context.Background(), principalFor(tech), "close", nil)
	require.NoError(t, err)

	err = env.tickets.ApplyBulkAction(context.Background(), principalFor(tech), "close",
		[]uuid.UUID{stamped.ID, fresh.ID})
	require.NoError(t, err)

	reloadedStamped := env.reloadTicket(t, stamped.ID)
	assert.Equal(t, model.TicketStatusClosed, reloadedStamped.Status)
	require.NotNil(t, reloadedStamped.ClosedAt)
	assert.True(t, reloadedStamped.ClosedAt.After(oldStamp), "bulk close must overwrite the stamp")

	reloadedFresh := env.reloadTicket(t, fresh.ID)
	assert.Equal(t, model.TicketStatusClosed, reloadedFresh.Status)
	assert.NotNil(t, reloadedFresh.ClosedAt)
}

func TestBulkAssignOnlyTouchesUnassigned(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	tech := env.createUser(t, "tech", model.RoleTechnician)
	colleague := env.createUser(t, "colleague", model.RoleTechnician)

	taken := env.insertTicket(t, &model.Ticket{
		Title:        "Taken",
		Description:  "already assigned",
		Status:       model.TicketStatusOpen,
		Priority:     model.TicketPriorityMedium,
		CreatedByID:  student.ID,
		AssignedToID: &colleague.ID,
	})
	free := env.insertTicket(t, &model.Ticket{
		Title:       "Free",
		Description: "unassigned",
		Status:      model.TicketStatusOpen,
		Priority:    model.TicketPriorityMedium,
		CreatedByID: student.ID,
	})

	err := env.tickets.ApplyBulkAction(context.Background(), principalFor(tech), "assign",
		[]uuid.UUID{taken.ID, free.ID})
	require.NoError(t, err)

	reloadedTaken := env.reloadTicket(t, taken.ID)
	require.NotNil(t, reloadedTaken.AssignedToID)
	assert.Equal(t, colleague.ID, *reloadedTaken.AssignedToID)

	reloadedFree := env.reloadTicket(t, free.ID)
	require.NotNil(t, reloadedFree.AssignedToID)
	assert.Equal(t, tech.ID, *reloadedFree.AssignedToID)
}

func TestStudentVisibility(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	other := env.createUser(t, "other", model.RoleStudent)
	staff := env.createUser(t, "staff", model.RoleStaff)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Private issue",
		Description: "only mine",
	})
	require.NoError(t, err)

	_, err = env.tickets.Get(context.Background(), principalFor(other), ticket.ID.String())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.tickets.Get(context.Background(), principalFor(student), ticket.ID.String())
	assert.NoError(t, err)

	_, err = env.tickets.Get(context.Background(), principalFor(staff), ticket.ID.String())
	assert.NoError(t, err)

	// Listing is scoped the same way.
	mine, err := env.tickets.List(context.Background(), principalFor(other), repository.TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, mine)

	all, err := env.tickets.List(context.Background(), principalFor(staff), repository.TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFeedbackRules(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	other := env.createUser(t, "other", model.RoleStudent)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Resolved issue",
		Description: "was handled well",
	})
	require.NoError(t, err)

	_, err = env.tickets.AddFeedback(context.Background(), principalFor(student), ticket.ID.String(), 0, "")
	requireValidation(t, err, "rating")

	_, err = env.tickets.AddFeedback(context.Background(), principalFor(other), ticket.ID.String(), 4, "")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	feedback, err := env.tickets.AddFeedback(context.Background(), principalFor(student), ticket.ID.String(), 5, "great")
	require.NoError(t, err)
	assert.Equal(t, 5, feedback.Rating)

	_, err = env.tickets.AddFeedback(context.Background(), principalFor(student), ticket.ID.String(), 3, "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestInternalNotesAreStaffOnly(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)
	tech := env.createUser(t, "tech", model.RoleTechnician)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Needs triage",
		Description: "vague report",
	})
	require.NoError(t, err)

	_, err = env.tickets.AddInternalNote(context.Background(), principalFor(student), ticket.ID.String(), "should not work")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.tickets.AddInternalNote(context.Background(), principalFor(tech), ticket.ID.String(), "checked the switch logs")
	require.NoError(t, err)

	_, err = env.tickets.ListInternalNotes(context.Background(), principalFor(student), ticket.ID.String())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	notes, err := env.tickets.ListInternalNotes(context.Background(), principalFor(tech), ticket.ID.String())
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	// The detail view hides notes from the creator but keeps them for staff.
	details, err := env.tickets.GetDetails(context.Background(), principalFor(student), ticket.ID.String())
	require.NoError(t, err)
	assert.Empty(t, details.InternalNotes)

	staffDetails, err := env.tickets.GetDetails(context.Background(), principalFor(tech), ticket.ID.String())
	require.NoError(t, err)
	assert.Len(t, staffDetails.InternalNotes, 1)
}

func TestDetailRecommendations(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)

	wifi, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Wifi",
		Description: "My wifi is down",
	})
	require.NoError(t, err)

	details, err := env.tickets.GetDetails(context.Background(), principalFor(student), wifi.ID.String())
	require.NoError(t, err)
	require.Len(t, details.RecommendedSolutions, 1)
	assert.Equal(t, "Try restarting your router or checking if the cable is plugged in.", details.RecommendedSolutions[0])

	chair, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Chair",
		Description: "Need a new chair",
	})
	require.NoError(t, err)

	chairDetails, err := env.tickets.GetDetails(context.Background(), principalFor(student), chair.ID.String())
	require.NoError(t, err)
	assert.Len(t, chairDetails.RecommendedSolutions, 3)
}

func TestCreateRequiresExistingCreator(t *testing.T) {
	env := setupEnv(t)

	ghost := model.Principal{UserID: uuid.New(), Role: model.RoleStudent}
	_, err := env.tickets.Create(context.Background(), ghost, CreateTicketInput{
		Title:       "Ghost",
		Description: "no such user",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateNotifiesCreator(t *testing.T) {
	env := setupEnv(t)
	student := env.createUser(t, "student", model.RoleStudent)

	ticket, err := env.tickets.Create(context.Background(), principalFor(student), CreateTicketInput{
		Title:       "Notify me",
		Description: "plain request",
	})
	require.NoError(t, err)
	require.Len(t, env.notifier.calls, 1)
	assert.Contains(t, env.notifier.calls[0], "student@example.com")
	assert.Contains(t, env.notifier.calls[0], ticket.Title)
}
