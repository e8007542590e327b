package model

import "github.com/google/uuid"

// Principal is the acting user extracted from the access token.
// The role value is trusted as given by the identity provider.
type Principal struct {
	UserID   uuid.UUID
	Username string
	Role     UserRole
}

func (p Principal) IsStudent() bool {
	return p.Role == RoleStudent
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsStaffUser reports whether the principal belongs to the support side
// (staff, technician or admin).
func (p Principal) IsStaffUser() bool {
	return p.Role == RoleStaff || p.Role == RoleTechnician || p.Role == RoleAdmin
}
