// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAny(t *testing.T) {
	tests := []struct {
		name     string
		user     []string
		required []string
		want     bool
	}{
		{"wildcard with unknown requirement", []string{Wildcard}, []string{"anything_at_all"}, true},
		{"wildcard with empty requirement", []string{Wildcard}, nil, true},
		{"one match", []string{PermAddNotes}, []string{PermViewReports, PermAddNotes}, true},
		{"no match", []string{PermAddNotes}, []string{PermViewReports, PermDeleteNotes}, false},
		{"empty user set", nil, []string{PermAddNotes}, false},
		{"empty requirement", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAny(tt.user, tt.required))
		})
	}
}

func TestHasAll(t *testing.T) {
	tests := []struct {
		name     string
		user     []string
		required []string
		want     bool
	}{
		{"wildcard", []string{Wildcard}, []string{PermDeleteSuites, PermManageSettings}, true},
		{"all present", []string{PermAddTasks, PermAssignTasks, PermAddNotes}, []string{PermAddTasks, PermAssignTasks}, true},
		{"one missing", []string{PermAddTasks}, []string{PermAddTasks, PermAssignTasks}, false},
		{"empty requirement", nil, []string{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAll(tt.user, tt.required))
		})
	}
}

func TestWildcardIdempotence(t *testing.T) {
	inputs := [][]string{
		{PermViewAllTasks},
		{"", "???"},
		{PermManageEmployees, PermDeleteNotes, PermManageSettings},
	}
	for _, required := range inputs {
		assert.True(t, HasAny([]string{Wildcard}, required))
		assert.True(t, HasAll([]string{Wildcard}, required))
		assert.True(t, HasAny([]string{PermAddNotes, Wildcard}, required))
	}
}
