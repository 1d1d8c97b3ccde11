// backend/src/parsers/parser.go
package parsers

import (
	"io"

	"github.com/username/secid/backend/src/models"
)

// RawRow is one data line of the input before any identifier is validated.
type RawRow struct {
	LineNumber  int
	EntityName  string
	Identifiers models.Identifiers
}

// Parser turns delimited identifier input into raw rows.
type Parser interface {
	Parse(file io.Reader) ([]RawRow, error)
}
