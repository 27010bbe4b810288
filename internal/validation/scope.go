package validation

import (
	"regexp"
	"strings"
)

// Scope name rules:
// - Lowercase only.
// - Start and end with [a-z0-9].
// - Middle chars may include [a-z0-9:_.-].
// - Length 1..64.
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidScopeName returns true if the provided scope name matches the allowed pattern.
func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// SplitScopes parte un scope string por espacios descartando vacíos.
func SplitScopes(scope string) []string {
	return strings.Fields(scope)
}

// Duplicates devuelve los scopes repetidos en la lista (para invalid_request).
func Duplicates(scopes []string) []string {
	seen := make(map[string]bool, len(scopes))
	var dup []string
	for _, s := range scopes {
		if seen[s] {
			dup = append(dup, s)
			continue
		}
		seen[s] = true
	}
	return dup
}
