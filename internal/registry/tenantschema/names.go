package tenantschema

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// MaxNameLength is the PostgreSQL identifier limit.
const MaxNameLength = 63

var (
	ErrInvalidName = errors.New("tenantschema: invalid schema name")

	namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,62}$`)

	reservedNames = map[string]struct{}{
		"public":             {},
		"information_schema": {},
	}
)

// ValidateName checks that name is safe to use as a tenant namespace.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must be 3-63 chars of [a-z0-9_] starting with a letter", ErrInvalidName, name)
	}
	if _, ok := reservedNames[name]; ok || strings.HasPrefix(name, "pg_") {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	return nil
}

// ScopedDSN returns dsn with search_path pinned to schema, so unqualified
// DDL and the migrate version table land inside the namespace.
func ScopedDSN(dsn, schema string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
