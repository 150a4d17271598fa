// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package events

// Name is the wire-stable identifier other collaborators subscribe to.
type Name string

const (
	SuiteStatusChanged   Name = "suite.status.changed"
	SuiteCheckedIn       Name = "suite.checked.in"
	SuiteCheckedOut      Name = "suite.checked.out"
	SuiteOutOfOrder      Name = "suite.out.of.order"
	TaskCreated          Name = "task.created"
	TaskAssigned         Name = "task.assigned"
	TaskStatusChanged    Name = "task.status.changed"
	TaskCompleted        Name = "task.completed"
	TaskVerified         Name = "task.verified"
	TaskEmergencyCreated Name = "task.emergency.created"
	TaskOverdue          Name = "task.overdue"
	EmployeeClockIn      Name = "employee.clock.in"
	EmployeeClockOut     Name = "employee.clock.out"
	NoteIncidentCreated  Name = "note.incident.created"
	NoteFollowUpDue      Name = "note.followup.due"
)

// Names lists every published event name.
func Names() []Name {
	return []Name{
		SuiteStatusChanged,
		SuiteCheckedIn,
		SuiteCheckedOut,
		SuiteOutOfOrder,
		TaskCreated,
		TaskAssigned,
		TaskStatusChanged,
		TaskCompleted,
		TaskVerified,
		TaskEmergencyCreated,
		TaskOverdue,
		EmployeeClockIn,
		EmployeeClockOut,
		NoteIncidentCreated,
		NoteFollowUpDue,
	}
}
