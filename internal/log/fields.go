// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	FieldService   = "service"
	FieldVersion   = "version"
	FieldComponent = "component"
	FieldEvent     = "event"

	// Identity fields
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldJobID         = "job_id"
	FieldJobType       = "job_type"
	FieldActorID       = "actor_id"
	FieldHandler       = "handler"

	// Entity fields
	FieldSuiteID      = "suite_id"
	FieldTaskID       = "task_id"
	FieldEmployeeID   = "employee_id"
	FieldNoteID       = "note_id"
	FieldRecipientID  = "recipient_id"
	FieldRecipients   = "recipients"
	FieldTaskType     = "task_type"
	FieldTaskPriority = "priority"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Queue fields
	FieldAttempt     = "attempt"
	FieldMaxAttempts = "max_attempts"
	FieldQueue       = "queue"
	FieldWorker      = "worker"
	FieldRetryIn     = "retry_in"
)
