// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package auth resolves bearer tokens on the operator API to actors.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/ManuGH/suiteops/internal/control/authz"
	"github.com/ManuGH/suiteops/internal/domain/model"
)

// HeaderAPIToken is accepted when no Authorization header is sent.
const HeaderAPIToken = "X-API-Token"

// ExtractToken retrieves the token from Authorization: Bearer, falling back
// to X-API-Token.
func ExtractToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return strings.TrimSpace(r.Header.Get(HeaderAPIToken))
}

// AuthorizeToken compares in constant time. Empty tokens never match.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// Binding maps one static token to an actor identity.
type Binding struct {
	Token   string
	ActorID string
	Role    model.Role
}

// StaticResolver resolves tokens from a list that changes only through
// Replace.
type StaticResolver struct {
	mu       sync.RWMutex
	bindings []Binding
}

func NewStaticResolver(bindings ...Binding) *StaticResolver {
	return &StaticResolver{bindings: append([]Binding(nil), bindings...)}
}

// Resolve returns the actor for token, or nil. Every binding is compared
// so the lookup time does not depend on which one matched.
func (s *StaticResolver) Resolve(token string) *authz.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var match *Binding
	for i := range s.bindings {
		if AuthorizeToken(token, s.bindings[i].Token) && match == nil {
			match = &s.bindings[i]
		}
	}
	if match == nil {
		return nil
	}
	return authz.NewActor(match.ActorID, match.Role)
}

// Replace swaps the token list, e.g. after a config reload.
func (s *StaticResolver) Replace(bindings ...Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings = append([]Binding(nil), bindings...)
}

// Authenticate attaches the resolved actor to the request context. Requests
// without a valid token pass through without an actor; authz middleware
// downstream decides whether that is acceptable.
func Authenticate(s *StaticResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := ExtractToken(r); tok != "" {
				if actor := s.Resolve(tok); actor != nil {
					r = r.WithContext(authz.WithActor(r.Context(), actor))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
