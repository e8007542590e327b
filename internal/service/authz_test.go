package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"helpdesk-service/internal/model"
)

func TestCapabilityTable(t *testing.T) {
	student := model.Principal{Role: model.RoleStudent}
	staff := model.Principal{Role: model.RoleStaff}
	technician := model.Principal{Role: model.RoleTechnician}
	admin := model.Principal{Role: model.RoleAdmin}

	assert.True(t, allowed(student, opTicketCreate))
	assert.True(t, allowed(student, opTicketReopen))
	assert.False(t, allowed(student, opTicketTransition))
	assert.False(t, allowed(student, opNoteRead))
	assert.False(t, allowed(student, opReportStaff))
	assert.True(t, allowed(student, opReportStudent))

	for _, p := range []model.Principal{staff, technician, admin} {
		assert.True(t, allowed(p, opTicketTransition), p.Role)
		assert.True(t, allowed(p, opNoteWrite), p.Role)
		assert.True(t, allowed(p, opDashboardActions), p.Role)
		assert.True(t, allowed(p, opReportExport), p.Role)
	}

	assert.False(t, allowed(staff, opCategoryManage))
	assert.False(t, allowed(technician, opCategoryManage))
	assert.True(t, allowed(admin, opCategoryManage))

	// Unknown roles hold no capabilities.
	assert.False(t, allowed(model.Principal{Role: "guest"}, opTicketCreate))
}
