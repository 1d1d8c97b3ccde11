// backend/src/parsers/factory.go
package parsers

import (
	"path/filepath"
	"strings"
)

// GetParser picks a parser for an uploaded file by its extension.
// Unknown or missing extensions are read as comma-separated text.
func GetParser(filename string) Parser {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return NewXLSXParser()
	case ".tsv", ".tab":
		return NewDelimitedParser('\t')
	default:
		return NewDelimitedParser(',')
	}
}
