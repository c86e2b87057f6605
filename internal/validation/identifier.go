// Package validation checks identifiers that are interpolated into DDL
// statements before any connection is opened.
package validation

import (
	"fmt"
	"regexp"
)

// identifierPattern matches identifiers that PostgreSQL (and MySQL) accept
// unquoted: a letter or underscore, then up to 62 letters, digits,
// underscores, or dollar signs.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]{0,62}$`)

// ValidIdentifier reports whether name is a safe SQL identifier.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// CheckRoles returns an error naming the first invalid role identifier, or
// nil when every role in the list is valid. An empty list is valid.
func CheckRoles(roles []string) error {
	for _, role := range roles {
		if !ValidIdentifier(role) {
			return fmt.Errorf("invalid role name '%s'", role)
		}
	}
	return nil
}
