// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/suiteops/internal/domain/model"
)

func TestSuiteEngine_SelfTransitionAlwaysValid(t *testing.T) {
	e := NewSuiteEngine()
	for _, s := range model.SuiteStates() {
		check := e.CanTransition(s, s)
		assert.True(t, check.Valid, "no-op must be valid for %s", s)
		assert.Nil(t, check.Rule, "no-op must not consult the table for %s", s)
		assert.True(t, e.Validate(s, s, nil).Valid)
	}
}

func TestSuiteEngine_AvailableForCheckInOnlyWhenVacantClean(t *testing.T) {
	for _, s := range model.SuiteStates() {
		assert.Equal(t, s == model.SuiteVacantClean, IsAvailableForCheckIn(s), "state %s", s)
	}
}

func TestSuiteEngine_CleaningPrecondition(t *testing.T) {
	e := NewSuiteEngine()

	v := e.Validate(model.SuiteVacantDirty, model.SuiteVacantClean, Facts{FactHasCompletedCleaningTask: false})
	require.False(t, v.Valid)
	assert.Contains(t, v.Reason, "Cleaning task")
	assert.Equal(t, []string{FactHasCompletedCleaningTask}, v.MissingFacts)

	v = e.Validate(model.SuiteVacantDirty, model.SuiteVacantClean, Facts{FactHasCompletedCleaningTask: true})
	assert.True(t, v.Valid)
}

func TestSuiteEngine_ValidTransitionsFromVacantClean(t *testing.T) {
	e := NewSuiteEngine()
	got := e.ValidTransitions(model.SuiteVacantClean)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	want := []model.SuiteState{
		model.SuiteBlocked,
		model.SuiteOccupiedClean,
		model.SuiteOutOfOrder,
		model.SuiteVacantDirty,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ValidTransitions(VACANT_CLEAN) mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, e.CanTransition(model.SuiteVacantClean, model.SuiteOccupiedDirty).Valid)
}

func TestSuiteEngine_AssertValidErrors(t *testing.T) {
	e := NewSuiteEngine()

	err := e.AssertValid(model.SuiteVacantClean, model.SuiteOccupiedDirty, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "Invalid suite status transition from VACANT_CLEAN to OCCUPIED_DIRTY", err.Error())

	err = e.AssertValid(model.SuiteVacantClean, model.SuiteOutOfOrder, Facts{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingPrecondition)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, []string{FactReason}, te.MissingFacts)
	assert.Equal(t, "suite", te.Entity)

	assert.NoError(t, e.AssertValid(model.SuiteVacantClean, model.SuiteOutOfOrder, Facts{FactReason: "leaking pipe"}))
}

func TestSuiteEngine_Reject(t *testing.T) {
	e := NewSuiteEngine()

	err := e.Reject(model.SuiteOccupiedClean, model.SuiteOccupiedClean, "Suite 101 is not available for check-in")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrMissingPrecondition)
	assert.EqualError(t, err, "Suite 101 is not available for check-in")

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "suite", te.Entity)
	assert.Equal(t, string(model.SuiteOccupiedClean), te.From)
	assert.Empty(t, te.MissingFacts)
}

func TestSuiteEngine_FirstMatchingRuleWins(t *testing.T) {
	e := NewEngine("sample", []Rule[model.SuiteState]{
		{From: []model.SuiteState{model.SuiteBlocked}, To: model.SuiteVacantClean, Description: "first"},
		{From: []model.SuiteState{model.SuiteBlocked}, To: model.SuiteVacantClean, Requires: []string{FactReason}, Description: "second"},
	}, nil)

	check := e.CanTransition(model.SuiteBlocked, model.SuiteVacantClean)
	require.True(t, check.Valid)
	require.NotNil(t, check.Rule)
	assert.Equal(t, "first", check.Rule.Description)
	assert.True(t, e.Validate(model.SuiteBlocked, model.SuiteVacantClean, nil).Valid)
}

func TestSuiteEngine_RuleTableIsOwned(t *testing.T) {
	rules := []Rule[model.SuiteState]{
		{From: []model.SuiteState{model.SuiteBlocked}, To: model.SuiteVacantClean},
	}
	e := NewEngine("sample", rules, nil)
	rules[0].To = model.SuiteOutOfOrder
	rules[0].From[0] = model.SuiteVacantDirty

	assert.True(t, e.CanTransition(model.SuiteBlocked, model.SuiteVacantClean).Valid)
	assert.False(t, e.CanTransition(model.SuiteVacantDirty, model.SuiteOutOfOrder).Valid)
}

func TestStatusAfterTaskCompletion(t *testing.T) {
	tests := []struct {
		current model.SuiteState
		task    model.TaskType
		want    model.SuiteState
		ok      bool
	}{
		{model.SuiteVacantDirty, model.TaskCleaning, model.SuiteVacantClean, true},
		{model.SuiteOccupiedDirty, model.TaskCleaning, model.SuiteOccupiedClean, true},
		{model.SuiteVacantDirty, model.TaskDeepCleaning, model.SuiteVacantClean, true},
		{model.SuiteOutOfOrder, model.TaskMaintenance, model.SuiteVacantDirty, true},
		{model.SuiteVacantClean, model.TaskCleaning, "", false},
		{model.SuiteVacantDirty, model.TaskMaintenance, "", false},
		{model.SuiteOutOfOrder, model.TaskInspection, "", false},
	}
	e := NewSuiteEngine()
	for _, tt := range tests {
		got, ok := StatusAfterTaskCompletion(tt.current, tt.task)
		assert.Equal(t, tt.ok, ok, "%s + %s", tt.current, tt.task)
		assert.Equal(t, tt.want, got, "%s + %s", tt.current, tt.task)
		if ok {
			assert.True(t, e.Validate(tt.current, got, CompletionFacts(tt.task)).Valid,
				"completion mapping must be a valid transition: %s -> %s", tt.current, got)
		}
	}
}

func TestSuiteDerivedQueries(t *testing.T) {
	assert.True(t, NeedsAttention(model.SuiteVacantDirty))
	assert.True(t, NeedsAttention(model.SuiteOccupiedDirty))
	assert.True(t, NeedsAttention(model.SuiteOutOfOrder))
	assert.False(t, NeedsAttention(model.SuiteBlocked))
	assert.False(t, NeedsAttention(model.SuiteVacantClean))

	assert.True(t, IsOccupied(model.SuiteOccupiedClean))
	assert.True(t, IsOccupied(model.SuiteOccupiedDirty))
	assert.False(t, IsOccupied(model.SuiteVacantDirty))
}
