// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package authz

import (
	"errors"
	"net/http"

	"github.com/ManuGH/suiteops/internal/control/problem"
	"github.com/ManuGH/suiteops/internal/log"
)

// Require gates next behind req. The actor must already be attached to the
// request context by an upstream resolver.
func Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if err := req.Check(actor); err != nil {
				writeDenied(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOperation gates next behind the registered requirement for op.
func RequireOperation(op string) func(http.Handler) http.Handler {
	req, ok := RequirementFor(op)
	if !ok {
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeDenied(w, r, Authorize(ActorFromContext(r.Context()), op))
			})
		}
	}
	return Require(req)
}

func writeDenied(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.WithComponentFromContext(r.Context(), "authz")
	if errors.Is(err, ErrUnauthorized) {
		logger.Debug().Str(log.FieldEvent, "authz.unauthorized").Str("path", r.URL.Path).Msg("request without actor")
		problem.Write(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized", "UNAUTHORIZED", err.Error(), nil)
		return
	}
	var fe *ForbiddenError
	extra := map[string]any{}
	if errors.As(err, &fe) {
		extra["requiredPermissions"] = fe.Required
		extra["mode"] = string(fe.Mode)
		logger.Info().
			Str(log.FieldEvent, "authz.forbidden").
			Str(log.FieldActorID, fe.ActorID).
			Strs("required", fe.Required).
			Msg("permission denied")
	}
	problem.Write(w, r, http.StatusForbidden, "auth/forbidden", "Forbidden", "FORBIDDEN", err.Error(), extra)
}
