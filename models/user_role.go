package models

type UserRole string

const (
	SpaceAdminRole UserRole = "SPACE_ADMIN_ROLE"
	SupervisorRole UserRole = "SUPERVISOR_ROLE"
	EmployeeRole   UserRole = "EMPLOYEE_ROLE"
)

var roleHumanName = map[UserRole]string{
	SpaceAdminRole: "Administrador",
	SupervisorRole: "Supervisor",
	EmployeeRole:   "Funcionário",
}

func (r UserRole) ToHuman() string {
	if human, exist := roleHumanName[r]; exist {
		return human
	}
	return string(r)
}

func (r UserRole) IsValid() bool {
	_, ok := roleHumanName[r]
	return ok
}

func (r UserRole) IsSpaceAdmin() bool {
	return r == SpaceAdminRole
}

const SystemUser = "Sistema"
