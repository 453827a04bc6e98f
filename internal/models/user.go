package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperUser UserRole = "SUPERUSER"
	RoleAdmin     UserRole = "ADMIN"
	RoleTeacher   UserRole = "TEACHER"
	RoleTutor     UserRole = "TUTOR"
	RoleParent    UserRole = "PARENT"
	RoleStudent   UserRole = "STUDENT"
	RoleAnonymous UserRole = "ANONYMOUS"
)

// Known reports whether the role is one of the recognised role tags.
func (r UserRole) Known() bool {
	switch r {
	case RoleSuperUser, RoleAdmin, RoleTeacher, RoleTutor, RoleParent, RoleStudent, RoleAnonymous:
		return true
	}
	return false
}
