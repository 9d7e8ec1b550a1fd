// Package models holds the data types shared by the ingestors and the
// reconciliation writer.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRow is one row of a delimited upload, cells in file order.
type RawRow []string

// RawTable is the untyped result of parsing a delimited upload.
type RawTable []RawRow

// IsBlank reports whether every cell of the row is empty after trimming.
func (r RawRow) IsBlank() bool {
	for _, cell := range r {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Cell returns the trimmed cell at idx, or "" when idx is out of range.
func (r RawRow) Cell(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[idx])
}

// ColumnRole is the semantic meaning assigned to a column.
type ColumnRole string

const (
	RoleDate        ColumnRole = "date"
	RoleDescription ColumnRole = "description"
	RoleAmount      ColumnRole = "amount"
	RoleCategory    ColumnRole = "category"
	RoleIgnored     ColumnRole = "ignored"
)

// MappedRoles lists the roles a ColumnMapping can assign, in display order.
var MappedRoles = []ColumnRole{RoleDate, RoleDescription, RoleAmount, RoleCategory}

// RequiredRoles must all be mapped before rows can be processed.
var RequiredRoles = []ColumnRole{RoleDate, RoleDescription, RoleAmount}

// Unmapped marks a role with no column.
const Unmapped = -1

// ColumnMapping assigns zero-based column indexes to roles. Columns without a
// role are ignored.
type ColumnMapping struct {
	Date        int `json:"date"`
	Description int `json:"description"`
	Amount      int `json:"amount"`
	Category    int `json:"category"`
}

// NewColumnMapping returns a mapping with every role unmapped.
func NewColumnMapping() ColumnMapping {
	return ColumnMapping{Date: Unmapped, Description: Unmapped, Amount: Unmapped, Category: Unmapped}
}

// Index returns the column assigned to role, or Unmapped.
func (m ColumnMapping) Index(role ColumnRole) int {
	switch role {
	case RoleDate:
		return m.Date
	case RoleDescription:
		return m.Description
	case RoleAmount:
		return m.Amount
	case RoleCategory:
		return m.Category
	default:
		return Unmapped
	}
}

// Has reports whether role is assigned a column.
func (m ColumnMapping) Has(role ColumnRole) bool {
	return m.Index(role) >= 0
}

// With returns a copy of m with role assigned to idx.
func (m ColumnMapping) With(role ColumnRole, idx int) ColumnMapping {
	switch role {
	case RoleDate:
		m.Date = idx
	case RoleDescription:
		m.Description = idx
	case RoleAmount:
		m.Amount = idx
	case RoleCategory:
		m.Category = idx
	}
	return m
}

// RoleOf returns the role assigned to column idx.
func (m ColumnMapping) RoleOf(idx int) ColumnRole {
	for _, role := range MappedRoles {
		if m.Index(role) == idx {
			return role
		}
	}
	return RoleIgnored
}

// Missing lists the required roles that have no column.
func (m ColumnMapping) Missing() []ColumnRole {
	var missing []ColumnRole
	for _, role := range RequiredRoles {
		if !m.Has(role) {
			missing = append(missing, role)
		}
	}
	return missing
}

// Validate checks that the required roles are mapped, that no two roles share
// a column and, when columns > 0, that every index is in range.
func (m ColumnMapping) Validate(columns int) error {
	if missing := m.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, role := range missing {
			names[i] = string(role)
		}
		return fmt.Errorf("missing column mapping for %s", strings.Join(names, ", "))
	}
	seen := make(map[int]ColumnRole)
	for _, role := range MappedRoles {
		idx := m.Index(role)
		if idx < 0 {
			continue
		}
		if columns > 0 && idx >= columns {
			return fmt.Errorf("column %d mapped to %s is out of range (%d columns)", idx, role, columns)
		}
		if other, dup := seen[idx]; dup {
			return fmt.Errorf("column %d mapped to both %s and %s", idx, other, role)
		}
		seen[idx] = role
	}
	return nil
}

// ParseColumnMapping reads an override such as
// "date=0,description=Memo,amount=3". Each value is a zero-based index or a
// header name (case-insensitive). Roles not named stay unmapped.
func ParseColumnMapping(expr string, headers []string) (ColumnMapping, error) {
	m := NewColumnMapping()
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return m, fmt.Errorf("invalid mapping entry %q: expected role=column", part)
		}
		role := ColumnRole(strings.ToLower(strings.TrimSpace(key)))
		if role == RoleIgnored || !isMappedRole(role) {
			return m, fmt.Errorf("unknown column role %q", key)
		}
		idx, err := resolveColumn(strings.TrimSpace(value), headers)
		if err != nil {
			return m, err
		}
		m = m.With(role, idx)
	}
	return m, nil
}

func isMappedRole(role ColumnRole) bool {
	for _, r := range MappedRoles {
		if r == role {
			return true
		}
	}
	return false
}

func resolveColumn(value string, headers []string) (int, error) {
	if idx, err := strconv.Atoi(value); err == nil {
		if idx < 0 {
			return Unmapped, fmt.Errorf("negative column index %d", idx)
		}
		return idx, nil
	}
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), value) {
			return i, nil
		}
	}
	return Unmapped, fmt.Errorf("no column named %q", value)
}

// ProjectedRow is the text of one row seen through a ColumnMapping.
type ProjectedRow struct {
	DateText        string
	DescriptionText string
	AmountText      string
	CategoryText    string
}

// Project is the only place rows are accessed by mapped index.
func Project(row RawRow, m ColumnMapping) ProjectedRow {
	return ProjectedRow{
		DateText:        row.Cell(m.Date),
		DescriptionText: row.Cell(m.Description),
		AmountText:      row.Cell(m.Amount),
		CategoryText:    row.Cell(m.Category),
	}
}
