// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package lifecycle holds the guarded state machines for suites and tasks.
// Engines are pure: they evaluate a static rule table and never touch storage.
package lifecycle

import (
	"fmt"
	"strings"
	"time"
)

// Facts are the context values a rule may require before it applies.
type Facts map[string]any

// Rule is a single declarative edge: any state in From may become To once
// every fact in Requires is present.
type Rule[S ~string] struct {
	From        []S
	To          S
	Requires    []string
	Description string
}

func (r Rule[S]) allows(from S) bool {
	for _, s := range r.From {
		if s == from {
			return true
		}
	}
	return false
}

// Check is the result of a pure table lookup.
type Check[S ~string] struct {
	Valid  bool
	Rule   *Rule[S]
	Reason string
}

// Validation is the result of a lookup plus precondition evaluation.
type Validation struct {
	Valid        bool
	Reason       string
	MissingFacts []string
}

// Engine evaluates transitions against an immutable rule table.
// It is safe for concurrent use.
type Engine[S ~string] struct {
	entity      string
	rules       []Rule[S]
	factReasons map[string]string
}

// NewEngine copies rules and factReasons; later mutation of the arguments
// does not affect the engine.
func NewEngine[S ~string](entity string, rules []Rule[S], factReasons map[string]string) *Engine[S] {
	owned := make([]Rule[S], len(rules))
	for i, r := range rules {
		owned[i] = Rule[S]{
			From:        append([]S(nil), r.From...),
			To:          r.To,
			Requires:    append([]string(nil), r.Requires...),
			Description: r.Description,
		}
	}
	reasons := make(map[string]string, len(factReasons))
	for k, v := range factReasons {
		reasons[k] = v
	}
	return &Engine[S]{entity: entity, rules: owned, factReasons: reasons}
}

// Entity returns the name of the record kind this engine governs.
func (e *Engine[S]) Entity() string { return e.entity }

// CanTransition reports whether a rule exists for (from, to). The first
// matching rule in declaration order wins.
func (e *Engine[S]) CanTransition(from, to S) Check[S] {
	if from == to {
		return Check[S]{Valid: true}
	}
	if r := e.find(from, to); r != nil {
		return Check[S]{Valid: true, Rule: r}
	}
	return Check[S]{
		Valid:  false,
		Reason: fmt.Sprintf("Invalid %s status transition from %s to %s", e.entity, from, to),
	}
}

// Validate checks the table and then every required fact of the matched
// rule. All missing facts are reported, not only the first.
func (e *Engine[S]) Validate(from, to S, facts Facts) Validation {
	check := e.CanTransition(from, to)
	if !check.Valid {
		return Validation{Valid: false, Reason: check.Reason}
	}
	if check.Rule == nil {
		return Validation{Valid: true}
	}

	var missing []string
	for _, name := range check.Rule.Requires {
		if !truthy(facts[name]) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return Validation{Valid: true}
	}

	reasons := make([]string, 0, len(missing))
	for _, name := range missing {
		if msg, ok := e.factReasons[name]; ok {
			reasons = append(reasons, msg)
			continue
		}
		reasons = append(reasons, fmt.Sprintf("Missing required field: %s", name))
	}
	return Validation{
		Valid:        false,
		Reason:       strings.Join(reasons, "; "),
		MissingFacts: missing,
	}
}

// ValidTransitions returns every distinct target reachable from `from`, in
// rule declaration order.
func (e *Engine[S]) ValidTransitions(from S) []S {
	seen := make(map[S]struct{})
	var out []S
	for _, r := range e.rules {
		if !r.allows(from) {
			continue
		}
		if _, dup := seen[r.To]; dup {
			continue
		}
		seen[r.To] = struct{}{}
		out = append(out, r.To)
	}
	return out
}

// AssertValid is Validate returning a *TransitionError on rejection.
func (e *Engine[S]) AssertValid(from, to S, facts Facts) error {
	v := e.Validate(from, to, facts)
	if v.Valid {
		return nil
	}
	kind := ErrInvalidTransition
	if len(v.MissingFacts) > 0 {
		kind = ErrMissingPrecondition
	}
	return &TransitionError{
		Entity:       e.entity,
		From:         string(from),
		To:           string(to),
		Reason:       v.Reason,
		MissingFacts: v.MissingFacts,
		kind:         kind,
	}
}

// Reject builds an invalid-transition error for a move that the rule table
// allows but the caller's own precondition forbids.
func (e *Engine[S]) Reject(from, to S, reason string) error {
	return &TransitionError{
		Entity: e.entity,
		From:   string(from),
		To:     string(to),
		Reason: reason,
		kind:   ErrInvalidTransition,
	}
}

// Rules returns a copy of the rule table.
func (e *Engine[S]) Rules() []Rule[S] {
	out := make([]Rule[S], len(e.rules))
	copy(out, e.rules)
	return out
}

func (e *Engine[S]) find(from, to S) *Rule[S] {
	for i := range e.rules {
		r := &e.rules[i]
		if r.To == to && r.allows(from) {
			cp := *r
			return &cp
		}
	}
	return nil
}

// truthy treats absent, nil, false, zero and empty values as missing.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case *string:
		return x != nil && *x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case time.Time:
		return !x.IsZero()
	case *time.Time:
		return x != nil && !x.IsZero()
	default:
		return true
	}
}
