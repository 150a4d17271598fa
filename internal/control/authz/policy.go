// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package authz

// Policy registry for service operations.
// This is the single source of truth for required permissions.
var operationPolicies = map[string]Requirement{
	OpSuiteChangeStatus:   AllOf(PermUpdateSuiteStatus),
	OpSuiteCheckIn:        AllOf(PermUpdateSuiteStatus),
	OpSuiteCheckOut:       AllOf(PermUpdateSuiteStatus),
	OpSuiteMarkOutOfOrder: AnyOf(PermUpdateSuiteStatus, PermAddMaintenanceNotes),
	OpTaskCreate:          AllOf(PermAddTasks),
	OpTaskAssign:          AllOf(PermAssignTasks),
	OpTaskChangeStatus:    AllOf(PermUpdateTaskStatus),
	OpTaskVerify:          AllOf(PermAssignTasks, PermUpdateTaskStatus),
	OpEmployeeClockIn:     {},
	OpEmployeeClockOut:    {},
	OpNoteCreate:          AnyOf(PermAddNotes, PermAddMaintenanceNotes),
	OpJobsListFailed:      AnyOf(PermViewReports, PermManageSettings),
}

// Operation names known to the policy registry.
const (
	OpSuiteChangeStatus   = "suite.change_status"
	OpSuiteCheckIn        = "suite.check_in"
	OpSuiteCheckOut       = "suite.check_out"
	OpSuiteMarkOutOfOrder = "suite.mark_out_of_order"
	OpTaskCreate          = "task.create"
	OpTaskAssign          = "task.assign"
	OpTaskChangeStatus    = "task.change_status"
	OpTaskVerify          = "task.verify"
	OpEmployeeClockIn     = "employee.clock_in"
	OpEmployeeClockOut    = "employee.clock_out"
	OpNoteCreate          = "note.create"
	OpJobsListFailed      = "jobs.list_failed"
)

// Operations allowed to carry an empty requirement (any authenticated actor).
var unscopedOperations = map[string]struct{}{
	OpEmployeeClockIn:  {},
	OpEmployeeClockOut: {},
}

// RequirementFor returns the requirement for an operation.
func RequirementFor(operation string) (Requirement, bool) {
	req, ok := operationPolicies[operation]
	if !ok {
		return Requirement{}, false
	}
	return Requirement{Mode: req.Mode, Permissions: clonePerms(req.Permissions)}, true
}

// Authorize checks actor against the registered requirement for operation.
// Unknown operations are denied.
func Authorize(actor *Actor, operation string) error {
	req, ok := RequirementFor(operation)
	if !ok {
		if actor == nil {
			return ErrUnauthorized
		}
		return &ForbiddenError{ActorID: actor.ID, Mode: ModeAll, Required: []string{operation}}
	}
	return req.Check(actor)
}

// IsUnscopedAllowed reports whether an operation is allowed to have an empty requirement.
func IsUnscopedAllowed(operation string) bool {
	_, ok := unscopedOperations[operation]
	return ok
}

func clonePerms(perms []string) []string {
	if perms == nil {
		return []string{}
	}
	return append([]string{}, perms...)
}
