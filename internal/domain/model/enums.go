// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

// SuiteState is the housekeeping status of a suite.
type SuiteState string

const (
	SuiteVacantClean   SuiteState = "VACANT_CLEAN"
	SuiteVacantDirty   SuiteState = "VACANT_DIRTY"
	SuiteOccupiedClean SuiteState = "OCCUPIED_CLEAN"
	SuiteOccupiedDirty SuiteState = "OCCUPIED_DIRTY"
	SuiteOutOfOrder    SuiteState = "OUT_OF_ORDER"
	SuiteBlocked       SuiteState = "BLOCKED"
)

// SuiteStates lists every suite state in declaration order.
func SuiteStates() []SuiteState {
	return []SuiteState{
		SuiteVacantClean,
		SuiteVacantDirty,
		SuiteOccupiedClean,
		SuiteOccupiedDirty,
		SuiteOutOfOrder,
		SuiteBlocked,
	}
}

// IsDirty reports whether the state requires cleaning.
func (s SuiteState) IsDirty() bool {
	return s == SuiteVacantDirty || s == SuiteOccupiedDirty
}

// TaskState is the lifecycle status of a task.
type TaskState string

const (
	TaskPending    TaskState = "PENDING"
	TaskAssigned   TaskState = "ASSIGNED"
	TaskInProgress TaskState = "IN_PROGRESS"
	TaskPaused     TaskState = "PAUSED"
	TaskCompleted  TaskState = "COMPLETED"
	TaskVerified   TaskState = "VERIFIED"
	TaskCancelled  TaskState = "CANCELLED"
)

// TaskStates lists every task state in declaration order.
func TaskStates() []TaskState {
	return []TaskState{
		TaskPending,
		TaskAssigned,
		TaskInProgress,
		TaskPaused,
		TaskCompleted,
		TaskVerified,
		TaskCancelled,
	}
}

// OpenTaskStates are the states in which a task still blocks creation of a
// duplicate automatic task for the same suite.
func OpenTaskStates() []TaskState {
	return []TaskState{TaskPending, TaskAssigned, TaskInProgress}
}

type TaskType string

const (
	TaskCleaning     TaskType = "CLEANING"
	TaskMaintenance  TaskType = "MAINTENANCE"
	TaskInspection   TaskType = "INSPECTION"
	TaskDeepCleaning TaskType = "DEEP_CLEANING"
	TaskLaundry      TaskType = "LAUNDRY"
	TaskOther        TaskType = "OTHER"
)

// IsCleaning reports whether the type counts as cleaning work for suite
// status purposes.
func (t TaskType) IsCleaning() bool {
	return t == TaskCleaning || t == TaskDeepCleaning
}

type Priority string

const (
	PriorityLow       Priority = "LOW"
	PriorityNormal    Priority = "NORMAL"
	PriorityHigh      Priority = "HIGH"
	PriorityUrgent    Priority = "URGENT"
	PriorityEmergency Priority = "EMERGENCY"
)

type Role string

const (
	RoleHousekeeper Role = "HOUSEKEEPER"
	RoleMaintenance Role = "MAINTENANCE"
	RoleFrontDesk   Role = "FRONT_DESK"
	RoleSupervisor  Role = "SUPERVISOR"
	RoleManager     Role = "MANAGER"
	RoleAdmin       Role = "ADMIN"
)

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "ACTIVE"
	EmployeeOnBreak  EmployeeStatus = "ON_BREAK"
	EmployeeOffDuty  EmployeeStatus = "OFF_DUTY"
	EmployeeInactive EmployeeStatus = "INACTIVE"
)

// IsInactive reports whether the employee has been deactivated.
func (s EmployeeStatus) IsInactive() bool { return s == EmployeeInactive }

// IsOnDuty reports whether the employee is currently working a shift.
func (s EmployeeStatus) IsOnDuty() bool {
	return s == EmployeeActive || s == EmployeeOnBreak
}

type Department string

const (
	DeptHousekeeping Department = "HOUSEKEEPING"
	DeptMaintenance  Department = "MAINTENANCE"
	DeptFrontDesk    Department = "FRONT_DESK"
	DeptManagement   Department = "MANAGEMENT"
)

type NoteType string

const (
	NoteGeneral     NoteType = "GENERAL"
	NoteIncident    NoteType = "INCIDENT"
	NoteMaintenance NoteType = "MAINTENANCE"
	NoteFollowUp    NoteType = "FOLLOW_UP"
)

type NotificationType string

const (
	NotifyTaskAssigned     NotificationType = "TASK_ASSIGNED"
	NotifyTaskVerified     NotificationType = "TASK_VERIFIED"
	NotifyTaskOverdue      NotificationType = "TASK_OVERDUE"
	NotifyEmergencyTask    NotificationType = "EMERGENCY_TASK"
	NotifySuiteOutOfOrder  NotificationType = "SUITE_OUT_OF_ORDER"
	NotifyTasksPaused      NotificationType = "TASKS_PAUSED"
	NotifyIncidentReported NotificationType = "INCIDENT_REPORTED"
	NotifyFollowUpDue      NotificationType = "FOLLOW_UP_DUE"
	NotifySystem           NotificationType = "SYSTEM"
)

// Related entity kinds referenced by notifications.
const (
	EntitySuite    = "suite"
	EntityTask     = "task"
	EntityEmployee = "employee"
	EntityNote     = "note"
)
