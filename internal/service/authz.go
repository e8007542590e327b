package service

import "helpdesk-service/internal/model"

// Role-based access is decided once per operation against this table
// instead of ad-hoc role comparisons at every call site. Creator-scoped
// exceptions (a student reading or reopening their own ticket) are
// checked explicitly where they apply.
type operation string

const (
	opTicketCreate     operation = "ticket.create"
	opTicketReadAll    operation = "ticket.read_all"
	opTicketUpdate     operation = "ticket.update"
	opTicketTransition operation = "ticket.transition"
	opTicketAssign     operation = "ticket.assign"
	opTicketEscalate   operation = "ticket.escalate"
	opTicketReopen     operation = "ticket.reopen"
	opCommentWrite     operation = "comment.write"
	opNoteRead         operation = "note.read"
	opNoteWrite        operation = "note.write"
	opFeedbackWrite    operation = "feedback.write"
	opAttachmentWrite  operation = "attachment.write"
	opDashboardActions operation = "dashboard.actions"
	opReportOverview   operation = "report.overview"
	opReportStaff      operation = "report.staff"
	opReportStudent    operation = "report.student"
	opReportExport     operation = "report.export"
	opCategoryManage   operation = "category.manage"
)

var staffCapabilities = map[operation]bool{
	opTicketCreate:     true,
	opTicketReadAll:    true,
	opTicketUpdate:     true,
	opTicketTransition: true,
	opTicketAssign:     true,
	opTicketEscalate:   true,
	opTicketReopen:     true,
	opCommentWrite:     true,
	opNoteRead:         true,
	opNoteWrite:        true,
	opFeedbackWrite:    true,
	opAttachmentWrite:  true,
	opDashboardActions: true,
	opReportOverview:   true,
	opReportStaff:      true,
	opReportExport:     true,
}

var capabilities = map[model.UserRole]map[operation]bool{
	model.RoleStudent: {
		opTicketCreate:    true,
		opTicketUpdate:    true,
		opTicketReopen:    true,
		opCommentWrite:    true,
		opFeedbackWrite:   true,
		opAttachmentWrite: true,
		opReportStudent:   true,
	},
	model.RoleStaff:      staffCapabilities,
	model.RoleTechnician: staffCapabilities,
	model.RoleAdmin:      withAdminExtras(staffCapabilities),
}

func withAdminExtras(base map[operation]bool) map[operation]bool {
	caps := make(map[operation]bool, len(base)+1)
	for op, ok := range base {
		caps[op] = ok
	}
	caps[opCategoryManage] = true
	return caps
}

func allowed(principal model.Principal, op operation) bool {
	return capabilities[principal.Role][op]
}
