package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Permission is an opaque string identifying a single allowed action.
// The "resource:action" convention is used (e.g. "user:read", "role:manage")
// but not enforced; matching is always an exact, case-sensitive comparison.
// No wildcard or hierarchy semantics exist.
type Permission string

// PermissionList is an ordered set of distinct permissions.
// It is persisted as a JSON array in a single text column.
type PermissionList []Permission

// NewPermissionList builds a PermissionList from raw strings,
// dropping empty entries and duplicates while preserving order.
func NewPermissionList(raw []string) PermissionList {
	out := make(PermissionList, 0, len(raw))

	for _, r := range raw {
		if r == "" {
			continue
		}

		out = out.Add(Permission(r))
	}

	return out
}

// Value implements driver.Valuer and serializes the list to JSON.
// A nil list is stored as an empty JSON array rather than NULL.
func (pl PermissionList) Value() (driver.Value, error) {
	if pl == nil {
		pl = PermissionList{}
	}

	out, err := json.Marshal(pl)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal permission list: %w", err)
	}

	return string(out), nil
}

// Scan implements sql.Scanner and deserializes the JSON column value.
func (pl *PermissionList) Scan(value any) error {
	var data []byte

	switch v := value.(type) {
	case nil:
		*pl = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported column type %T for permission list", value)
	}

	if len(data) == 0 {
		*pl = nil
		return nil
	}

	if err := json.Unmarshal(data, pl); err != nil {
		return fmt.Errorf("failed to unmarshal permission list: %w", err)
	}

	return nil
}

// Has reports whether the list contains p, by exact string match.
func (pl PermissionList) Has(p Permission) bool {
	for _, existing := range pl {
		if existing == p {
			return true
		}
	}

	return false
}

// Add returns the list with p appended.
// Adding an already present permission is a no-op, not an error.
func (pl PermissionList) Add(p Permission) PermissionList {
	if pl.Has(p) {
		return pl
	}

	return append(pl, p)
}

// Remove returns the list without p.
// Removing a permission that is not present is a no-op.
func (pl PermissionList) Remove(p Permission) PermissionList {
	for i, existing := range pl {
		if existing == p {
			return append(pl[:i:i], pl[i+1:]...)
		}
	}

	return pl
}

// Merge unions other into the list, preserving the order of first occurrence.
func (pl PermissionList) Merge(other PermissionList) PermissionList {
	out := pl

	for _, p := range other {
		out = out.Add(p)
	}

	return out
}

// Strings returns the list as plain strings for serialization boundaries.
func (pl PermissionList) Strings() []string {
	out := make([]string, 0, len(pl))

	for _, p := range pl {
		out = append(out, string(p))
	}

	return out
}
