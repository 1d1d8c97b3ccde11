package parsers

import (
	"fmt"
	"strings"

	"github.com/username/secid/backend/src/models"
)

// columnIndex maps each recognized column to its position in the header, -1 when absent.
type columnIndex struct {
	name        int
	identifiers map[models.IdentifierKind]int
}

// buildRows turns trimmed cells into raw rows. table[0] is the header; the
// line number of table[i] is i+1.
func buildRows(table [][]string) []RawRow {
	cols := resolveHeader(table[0])

	rows := make([]RawRow, 0, len(table)-1)
	for i := 1; i < len(table); i++ {
		lineNumber := i + 1
		values := table[i]

		row := RawRow{LineNumber: lineNumber}
		if cols.name >= 0 {
			row.EntityName = field(values, cols.name)
		} else {
			row.EntityName = fmt.Sprintf("Row %d", lineNumber)
		}
		for kind, idx := range cols.identifiers {
			if idx >= 0 {
				row.Identifiers.Set(kind, field(values, idx))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// resolveHeader matches header cells case-insensitively. The entity name comes
// from "name" if present, else "entity".
func resolveHeader(header []string) columnIndex {
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	cols := columnIndex{
		name:        indexOf(headers, "name"),
		identifiers: make(map[models.IdentifierKind]int, len(models.IdentifierKinds)),
	}
	if cols.name < 0 {
		cols.name = indexOf(headers, "entity")
	}
	for _, kind := range models.IdentifierKinds {
		cols.identifiers[kind] = indexOf(headers, kind.Column())
	}
	return cols
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if v == want {
			return i
		}
	}
	return -1
}

// field returns values[idx], or "" when the line is shorter than the header.
func field(values []string, idx int) string {
	if idx < len(values) {
		return values[idx]
	}
	return ""
}
