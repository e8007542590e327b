package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"helpdesk-service/internal/model"
	"helpdesk-service/internal/repository"
)

const (
	criticalSLAWindow = 2 * time.Hour
	highSLAWindow     = 4 * time.Hour

	chartWindowDays = 7
)

type ReportService struct {
	ticketRepo  *repository.TicketRepository
	commentRepo *repository.CommentRepository
	rng         *rand.Rand
}

// NewReportService builds the read-side aggregation service. The
// randomness source feeds the student quick tip and is injected so tests
// can seed it.
func NewReportService(ticketRepo *repository.TicketRepository, commentRepo *repository.CommentRepository, rng *rand.Rand) *ReportService {
	return &ReportService{
		ticketRepo:  ticketRepo,
		commentRepo: commentRepo,
		rng:         rng,
	}
}

// ComputeSLA returns the due label for high/critical tickets that are
// still open or in progress, nil for everything else. Not persisted;
// recomputed against the supplied now on every request.
func ComputeSLA(ticket *model.Ticket, now time.Time) *string {
	if ticket.Priority != model.TicketPriorityHigh && ticket.Priority != model.TicketPriorityCritical {
		return nil
	}
	if ticket.Status != model.TicketStatusOpen && ticket.Status != model.TicketStatusInProgress {
		return nil
	}

	window := highSLAWindow
	if ticket.Priority == model.TicketPriorityCritical {
		window = criticalSLAWindow
	}

	remaining := ticket.CreatedAt.Add(window).Sub(now)
	if remaining <= 0 {
		label := "Overdue"
		return &label
	}

	hours := int(remaining / time.Hour)
	minutes := int(remaining%time.Hour) / int(time.Minute)
	label := fmt.Sprintf("Due in %dh %dm", hours, minutes)
	return &label
}

type Overview struct {
	TotalTickets      int64   `json:"total_tickets"`
	OpenTickets       int64   `json:"open_tickets"`
	ResolvedTickets   int64   `json:"resolved_tickets"`
	AvgResolutionTime float64 `json:"avg_resolution_time"`
}

// Overview is the admin-facing summary. The mean time-to-close here runs
// over closed-status tickets only and must stay separate from the
// per-technician average on the staff dashboard.
func (s *ReportService) Overview(ctx context.Context, principal model.Principal) (*Overview, error) {
	if !allowed(principal, opReportOverview) {
		return nil, ErrPermissionDenied
	}

	total, err := s.ticketRepo.Count(ctx, nil)
	if err != nil {
		return nil, err
	}

	openStatus := model.TicketStatusOpen
	open, err := s.ticketRepo.Count(ctx, &openStatus)
	if err != nil {
		return nil, err
	}

	resolvedStatus := model.TicketStatusResolved
	resolved, err := s.ticketRepo.Count(ctx, &resolvedStatus)
	if err != nil {
		return nil, err
	}

	closedStatus := model.TicketStatusClosed
	closed, err := s.ticketRepo.ListClosed(ctx, repository.ClosedTicketFilter{Status: &closedStatus})
	if err != nil {
		return nil, err
	}

	return &Overview{
		TotalTickets:      total,
		OpenTickets:       open,
		ResolvedTickets:   resolved,
		AvgResolutionTime: meanTimeToCloseHours(closed),
	}, nil
}

// meanTimeToCloseHours averages closed_at - created_at in hours. An
// empty set yields 0, not NaN.
func meanTimeToCloseHours(tickets []model.Ticket) float64 {
	if len(tickets) == 0 {
		return 0
	}
	var totalSeconds float64
	for _, t := range tickets {
		totalSeconds += t.ClosedAt.Sub(t.CreatedAt).Seconds()
	}
	hours := totalSeconds / float64(len(tickets)) / 3600
	return math.Round(hours*10) / 10
}

type TicketWithSLA struct {
	model.Ticket
	SLADue *string `json:"sla_due"`
}

type StaffDashboard struct {
	Tickets         []TicketWithSLA `json:"tickets"`
	MyOpenTickets   int             `json:"my_open_tickets"`
	HighPriority    int             `json:"high_priority"`
	Escalated       int             `json:"escalated"`
	AvgResponseTime float64         `json:"avg_response_time"`
}

// StaffDashboard covers the acting technician's queue: tickets assigned
// to them plus the unassigned pool, with per-ticket SLA labels.
func (s *ReportService) StaffDashboard(ctx context.Context, principal model.Principal, query string) (*StaffDashboard, error) {
	if !allowed(principal, opReportStaff) {
		return nil, ErrPermissionDenied
	}

	actorID := principal.UserID
	tickets, err := s.ticketRepo.List(ctx, repository.TicketListFilter{
		AssignedToOrUnassigned: &actorID,
		Query:                  query,
	})
	if err != nil {
		return nil, err
	}

	mine, err := s.ticketRepo.List(ctx, repository.TicketListFilter{AssignedToID: &actorID})
	if err != nil {
		return nil, err
	}

	myOpen := 0
	for _, t := range mine {
		if isActionable(t.Status) {
			myOpen++
		}
	}

	highPriority := 0
	escalated := 0
	for _, t := range tickets {
		if !isActionable(t.Status) {
			continue
		}
		if t.Priority == model.TicketPriorityHigh || t.Priority == model.TicketPriorityCritical {
			highPriority++
		}
		if t.IsEscalated {
			escalated++
		}
	}

	// Per-technician average over every ticket the actor closed,
	// regardless of final status (resolved tickets carry a stamp too).
	closed, err := s.ticketRepo.ListClosed(ctx, repository.ClosedTicketFilter{AssignedToID: &actorID})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	withSLA := make([]TicketWithSLA, 0, len(tickets))
	for _, t := range tickets {
		ticket := t
		withSLA = append(withSLA, TicketWithSLA{Ticket: ticket, SLADue: ComputeSLA(&ticket, now)})
	}

	return &StaffDashboard{
		Tickets:         withSLA,
		MyOpenTickets:   myOpen,
		HighPriority:    highPriority,
		Escalated:       escalated,
		AvgResponseTime: meanTimeToCloseHours(closed),
	}, nil
}

func isActionable(status model.TicketStatus) bool {
	return status == model.TicketStatusOpen || status == model.TicketStatusInProgress
}

type StudentDashboard struct {
	Tickets         []model.Ticket `json:"tickets"`
	OpenTickets     int            `json:"open_tickets"`
	ResolvedTickets int            `json:"resolved_tickets"`
	PendingAction   int            `json:"pending_action"`
	QuickTip        string         `json:"quick_tip"`
}

// StudentDashboard summarizes the student's own tickets. A ticket counts
// as pending action when it is still actionable and the latest comment
// came from the support side.
func (s *ReportService) StudentDashboard(ctx context.Context, principal model.Principal) (*StudentDashboard, error) {
	if !allowed(principal, opReportStudent) {
		return nil, ErrPermissionDenied
	}

	creatorID := principal.UserID
	tickets, err := s.ticketRepo.List(ctx, repository.TicketListFilter{CreatedByID: &creatorID})
	if err != nil {
		return nil, err
	}

	open := 0
	resolved := 0
	pending := 0
	for _, t := range tickets {
		if !isActionable(t.Status) {
			resolved++
			continue
		}
		open++

		role, hasComment, err := s.commentRepo.LatestAuthorRole(ctx, t.ID.String())
		if err != nil {
			return nil, err
		}
		if hasComment && role != model.RoleStudent {
			pending++
		}
	}

	return &StudentDashboard{
		Tickets:         tickets,
		OpenTickets:     open,
		ResolvedTickets: resolved,
		PendingAction:   pending,
		QuickTip:        QuickTip(s.rng),
	}, nil
}

type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type ChartData struct {
	StatusDist    []repository.StatusCount `json:"status_dist"`
	DailyActivity []DailyCount             `json:"daily_activity"`
}

// ChartData feeds the overview charts: a status histogram and created
// counts per calendar day over the trailing week, ascending by date.
func (s *ReportService) ChartData(ctx context.Context, principal model.Principal) (*ChartData, error) {
	if !allowed(principal, opReportOverview) {
		return nil, ErrPermissionDenied
	}

	statusDist, err := s.ticketRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := today.AddDate(0, 0, -chartWindowDays)

	createdAt, err := s.ticketRepo.ListCreatedSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	buckets := map[string]int{}
	for _, ts := range createdAt {
		buckets[ts.Format("2006-01-02")]++
	}

	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Strings(days)

	daily := make([]DailyCount, 0, len(days))
	for _, day := range days {
		daily = append(daily, DailyCount{Day: day, Count: buckets[day]})
	}

	return &ChartData{
		StatusDist:    statusDist,
		DailyActivity: daily,
	}, nil
}

var exportHeader = []string{"ID", "Title", "Status", "Priority", "Category", "Created By", "Created At", "Resolved At"}

// ExportCSV renders the full ticket set as CSV records, header first.
func (s *ReportService) ExportCSV(ctx context.Context, principal model.Principal) ([][]string, error) {
	if !allowed(principal, opReportExport) {
		return nil, ErrPermissionDenied
	}

	rows, err := s.ticketRepo.ListForExport(ctx)
	if err != nil {
		return nil, err
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, exportHeader)

	for _, row := range rows {
		category := ""
		if row.CategoryName != nil {
			category = *row.CategoryName
		}
		closedAt := ""
		if row.ClosedAt != nil {
			closedAt = row.ClosedAt.Format(time.RFC3339)
		}
		records = append(records, []string{
			row.ID.String(),
			row.Title,
			row.Status,
			row.Priority,
			category,
			row.CreatedBy,
			row.CreatedAt.Format(time.RFC3339),
			closedAt,
		})
	}

	return records, nil
}
