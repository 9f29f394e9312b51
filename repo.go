package itemgate

import (
	"fmt"
	"regexp"
)

// Tables holds configurable table names for the gateway storage.
type Tables struct {
	Users       string `mapstructure:"users"`
	Credentials string `mapstructure:"credentials"`
	Items       string `mapstructure:"items"`
}

// DefaultTables returns the table names used when none are configured.
func DefaultTables() Tables {
	return Tables{
		Users:       "itemgate_users",
		Credentials: "itemgate_credentials",
		Items:       "itemgate_items",
	}
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set, valid and distinct.
func (t Tables) Validate() error {
	names := []struct {
		kind, name string
	}{
		{"users", t.Users},
		{"credentials", t.Credentials},
		{"items", t.Items},
	}

	seen := make(map[string]string, len(names))
	for _, n := range names {
		if n.name == "" {
			return fmt.Errorf("validate tables: %s table name cannot be empty", n.kind)
		}
		if !IsValidTableName(n.name) {
			return fmt.Errorf("validate tables: invalid %s table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", n.kind, n.name)
		}
		if other, ok := seen[n.name]; ok {
			return fmt.Errorf("validate tables: %s and %s tables share the name %s", other, n.kind, n.name)
		}
		seen[n.name] = n.kind
	}

	return nil
}
