// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package authz

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/suiteops/internal/domain/model"
)

func TestRequirementCheck_MissingActorIsUnauthorized(t *testing.T) {
	err := AllOf(PermAddTasks).Check(nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestRequirementCheck_ForbiddenEnumeratesPermissions(t *testing.T) {
	actor := NewActor("emp-1", model.RoleHousekeeper)

	err := AnyOf(PermAssignTasks, PermViewReports).Check(actor)
	require.ErrorIs(t, err, ErrForbidden)
	var fe *ForbiddenError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, []string{PermAssignTasks, PermViewReports}, fe.Required)
	assert.Equal(t, "insufficient permissions: requires assign_tasks or view_reports", err.Error())

	err = AllOf(PermAddTasks, PermAssignTasks).Check(actor)
	assert.EqualError(t, err, "insufficient permissions: requires add_tasks and assign_tasks")
}

func TestRoleDefaults(t *testing.T) {
	assert.Equal(t, []string{Wildcard}, PermissionsForRole(model.RoleManager))
	assert.Equal(t, []string{Wildcard}, PermissionsForRole(model.RoleAdmin))
	assert.Empty(t, PermissionsForRole("GHOST"))

	supervisor := NewActor("sup", model.RoleSupervisor)
	assert.NoError(t, Authorize(supervisor, OpTaskAssign))
	assert.ErrorIs(t, Authorize(supervisor, "suite.delete"), ErrForbidden)

	frontDesk := NewActor("fd", model.RoleFrontDesk)
	assert.NoError(t, Authorize(frontDesk, OpSuiteCheckOut))
	assert.ErrorIs(t, Authorize(frontDesk, OpTaskAssign), ErrForbidden)

	// Mutating the returned slice must not leak into the registry.
	perms := PermissionsForRole(model.RoleHousekeeper)
	perms[0] = Wildcard
	assert.NotContains(t, PermissionsForRole(model.RoleHousekeeper), Wildcard)
}

func TestPolicyUnscopedAllowlist(t *testing.T) {
	for op, req := range operationPolicies {
		if len(req.Permissions) == 0 && !IsUnscopedAllowed(op) {
			t.Errorf("operation %s has empty requirement but is not allowlisted", op)
		}
	}
	for op := range unscopedOperations {
		req, ok := operationPolicies[op]
		if !ok {
			t.Errorf("allowlisted operation %s missing policy entry", op)
			continue
		}
		if len(req.Permissions) != 0 {
			t.Errorf("allowlisted operation %s must have empty requirement", op)
		}
	}
	assert.ErrorIs(t, Authorize(nil, OpEmployeeClockIn), ErrUnauthorized)
	assert.NoError(t, Authorize(NewActor("x", model.RoleHousekeeper), OpEmployeeClockIn))
}

func TestRequireMiddleware(t *testing.T) {
	handler := Require(AllOf(PermViewReports))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name  string
		actor *Actor
		want  int
	}{
		{"no actor", nil, http.StatusUnauthorized},
		{"housekeeper", NewActor("hk", model.RoleHousekeeper), http.StatusForbidden},
		{"supervisor", NewActor("sup", model.RoleSupervisor), http.StatusNoContent},
		{"manager wildcard", NewActor("mgr", model.RoleManager), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/jobs/failed", nil)
			if tt.actor != nil {
				req = req.WithContext(WithActor(req.Context(), tt.actor))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want >= 400 {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			}
		})
	}
}
