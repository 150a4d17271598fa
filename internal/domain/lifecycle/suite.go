// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/suiteops/internal/domain/model"

// Fact names consulted by the suite and task rule tables.
const (
	FactHasCompletedCleaningTask    = "hasCompletedCleaningTask"
	FactHasCompletedMaintenanceTask = "hasCompletedMaintenanceTask"
	FactReason                      = "reason"
	FactAssignedTo                  = "assignedTo"
	FactVerifiedBy                  = "verifiedBy"
)

// SuiteEngine governs suite status changes.
type SuiteEngine = Engine[model.SuiteState]

func suiteRules() []Rule[model.SuiteState] {
	const (
		vc = model.SuiteVacantClean
		vd = model.SuiteVacantDirty
		oc = model.SuiteOccupiedClean
		od = model.SuiteOccupiedDirty
		oo = model.SuiteOutOfOrder
		bl = model.SuiteBlocked
	)
	return []Rule[model.SuiteState]{
		{From: []model.SuiteState{vc}, To: oc, Description: "Guest check-in"},
		{From: []model.SuiteState{oc, od}, To: vd, Description: "Guest check-out"},
		{From: []model.SuiteState{vc}, To: vd, Description: "Suite became dirty"},
		{From: []model.SuiteState{oc}, To: od, Description: "Occupied suite needs service"},
		{From: []model.SuiteState{vd}, To: vc, Requires: []string{FactHasCompletedCleaningTask}, Description: "Cleaning task completed"},
		{From: []model.SuiteState{od}, To: oc, Requires: []string{FactHasCompletedCleaningTask}, Description: "Stay-over service completed"},
		{From: []model.SuiteState{vc, vd, oc, od, bl}, To: oo, Requires: []string{FactReason}, Description: "Suite taken out of order"},
		{From: []model.SuiteState{oo}, To: vd, Requires: []string{FactHasCompletedMaintenanceTask}, Description: "Maintenance completed"},
		{From: []model.SuiteState{vc, vd}, To: bl, Requires: []string{FactReason}, Description: "Suite blocked"},
		{From: []model.SuiteState{bl}, To: vc, Description: "Suite unblocked"},
		{From: []model.SuiteState{bl}, To: vd, Description: "Suite unblocked, needs cleaning"},
	}
}

var suiteFactReasons = map[string]string{
	FactHasCompletedCleaningTask:    "Cleaning task must be completed before marking suite clean",
	FactHasCompletedMaintenanceTask: "Maintenance task must be completed before returning suite to service",
	FactReason:                      "A reason is required for this status change",
}

// NewSuiteEngine builds the suite state machine.
func NewSuiteEngine() *SuiteEngine {
	return NewEngine("suite", suiteRules(), suiteFactReasons)
}

// IsAvailableForCheckIn is true only for VACANT_CLEAN.
func IsAvailableForCheckIn(s model.SuiteState) bool {
	return s == model.SuiteVacantClean
}

// NeedsAttention is true for dirty and out-of-order suites.
func NeedsAttention(s model.SuiteState) bool {
	return s.IsDirty() || s == model.SuiteOutOfOrder
}

func IsOccupied(s model.SuiteState) bool {
	return s == model.SuiteOccupiedClean || s == model.SuiteOccupiedDirty
}

// StatusAfterTaskCompletion returns the suite state produced by finishing a
// task of the given type. ok is false when the pairing changes nothing.
func StatusAfterTaskCompletion(current model.SuiteState, taskType model.TaskType) (next model.SuiteState, ok bool) {
	switch {
	case taskType.IsCleaning():
		switch current {
		case model.SuiteVacantDirty:
			return model.SuiteVacantClean, true
		case model.SuiteOccupiedDirty:
			return model.SuiteOccupiedClean, true
		}
	case taskType == model.TaskMaintenance:
		if current == model.SuiteOutOfOrder {
			return model.SuiteVacantDirty, true
		}
	}
	return "", false
}

// CompletionFacts returns the facts implied by finishing a task of the given
// type, for use with Validate when applying StatusAfterTaskCompletion.
func CompletionFacts(taskType model.TaskType) Facts {
	switch {
	case taskType.IsCleaning():
		return Facts{FactHasCompletedCleaningTask: true}
	case taskType == model.TaskMaintenance:
		return Facts{FactHasCompletedMaintenanceTask: true}
	}
	return Facts{}
}
