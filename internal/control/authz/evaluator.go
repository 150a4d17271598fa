// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package authz

// HasAny reports whether userPerms satisfies at least one of required.
// A wildcard grant or an empty requirement always passes.
func HasAny(userPerms, required []string) bool {
	if hasWildcard(userPerms) || len(required) == 0 {
		return true
	}
	granted := toSet(userPerms)
	for _, p := range required {
		if _, ok := granted[p]; ok {
			return true
		}
	}
	return false
}

// HasAll reports whether userPerms satisfies every element of required.
func HasAll(userPerms, required []string) bool {
	if hasWildcard(userPerms) {
		return true
	}
	granted := toSet(userPerms)
	for _, p := range required {
		if _, ok := granted[p]; !ok {
			return false
		}
	}
	return true
}

func hasWildcard(perms []string) bool {
	for _, p := range perms {
		if p == Wildcard {
			return true
		}
	}
	return false
}

func toSet(perms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}
