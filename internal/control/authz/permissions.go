// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package authz

import "github.com/ManuGH/suiteops/internal/domain/model"

// Permission strings are a wire contract shared with the API layer.
const (
	PermViewAssignedTasks   = "view_assigned_tasks"
	PermViewAllTasks        = "view_all_tasks"
	PermUpdateTaskStatus    = "update_task_status"
	PermAddTasks            = "add_tasks"
	PermAssignTasks         = "assign_tasks"
	PermDeleteTasks         = "delete_tasks"
	PermViewAllSuites       = "view_all_suites"
	PermUpdateSuiteStatus   = "update_suite_status"
	PermCreateSuites        = "create_suites"
	PermDeleteSuites        = "delete_suites"
	PermViewEmployees       = "view_employees"
	PermManageEmployees     = "manage_employees"
	PermAddNotes            = "add_notes"
	PermAddMaintenanceNotes = "add_maintenance_notes"
	PermViewAllNotes        = "view_all_notes"
	PermDeleteNotes         = "delete_notes"
	PermManageSettings      = "manage_settings"
	PermViewReports         = "view_reports"

	// Wildcard satisfies any permission check.
	Wildcard = "*"
)

var defaultRolePermissions = map[model.Role][]string{
	model.RoleHousekeeper: {
		PermViewAssignedTasks,
		PermUpdateTaskStatus,
		PermAddNotes,
	},
	model.RoleMaintenance: {
		PermViewAssignedTasks,
		PermUpdateTaskStatus,
		PermAddNotes,
		PermAddMaintenanceNotes,
		PermUpdateSuiteStatus,
	},
	model.RoleFrontDesk: {
		PermViewAllSuites,
		PermUpdateSuiteStatus,
		PermViewAllTasks,
		PermAddTasks,
		PermAddNotes,
		PermViewAllNotes,
	},
	model.RoleSupervisor: {
		PermViewAllTasks,
		PermUpdateTaskStatus,
		PermAddTasks,
		PermAssignTasks,
		PermViewAllSuites,
		PermUpdateSuiteStatus,
		PermViewEmployees,
		PermAddNotes,
		PermAddMaintenanceNotes,
		PermViewAllNotes,
		PermViewReports,
	},
	model.RoleManager: {Wildcard},
	model.RoleAdmin:   {Wildcard},
}

// PermissionsForRole returns a copy of the default permission set for role.
// Unknown roles get no permissions.
func PermissionsForRole(role model.Role) []string {
	perms, ok := defaultRolePermissions[role]
	if !ok {
		return []string{}
	}
	return append([]string{}, perms...)
}
