// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package authz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/suiteops/internal/domain/model"
)

var (
	// ErrUnauthorized means no actor was attached where a check is required.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden means the actor lacks the required permissions.
	ErrForbidden = errors.New("insufficient permissions")
)

// Mode selects how a requirement list is evaluated.
type Mode string

const (
	ModeAny Mode = "any"
	ModeAll Mode = "all"
)

// Actor is an authenticated principal with a resolved permission set.
type Actor struct {
	ID          string
	Role        model.Role
	Permissions []string
}

// NewActor resolves the default permission set for role.
func NewActor(id string, role model.Role) *Actor {
	return &Actor{ID: id, Role: role, Permissions: PermissionsForRole(role)}
}

// Requirement is a declared permission list plus evaluation mode.
type Requirement struct {
	Mode        Mode
	Permissions []string
}

// AnyOf builds a requirement satisfied by any listed permission.
func AnyOf(perms ...string) Requirement { return Requirement{Mode: ModeAny, Permissions: perms} }

// AllOf builds a requirement satisfied only by every listed permission.
func AllOf(perms ...string) Requirement { return Requirement{Mode: ModeAll, Permissions: perms} }

// ForbiddenError enumerates the permissions that would have sufficed.
type ForbiddenError struct {
	ActorID  string
	Mode     Mode
	Required []string
}

func (e *ForbiddenError) Error() string {
	joiner := " or "
	if e.Mode == ModeAll {
		joiner = " and "
	}
	return fmt.Sprintf("insufficient permissions: requires %s", strings.Join(e.Required, joiner))
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// Allowed evaluates the requirement against a permission set.
func (r Requirement) Allowed(perms []string) bool {
	if r.Mode == ModeAll {
		return HasAll(perms, r.Permissions)
	}
	return HasAny(perms, r.Permissions)
}

// Check returns nil when actor satisfies r, ErrUnauthorized when actor is
// nil, and a *ForbiddenError otherwise.
func (r Requirement) Check(actor *Actor) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if r.Allowed(actor.Permissions) {
		return nil
	}
	mode := r.Mode
	if mode == "" {
		mode = ModeAny
	}
	return &ForbiddenError{
		ActorID:  actor.ID,
		Mode:     mode,
		Required: append([]string{}, r.Permissions...),
	}
}
