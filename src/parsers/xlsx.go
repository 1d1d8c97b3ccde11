// backend/src/parsers/xlsx.go
package parsers

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/username/secid/backend/src/models"
)

// XLSXParser reads the first worksheet of a workbook, one row per line.
// Rows whose cells are all blank are dropped, as blank lines are for text input.
type XLSXParser struct{}

func NewXLSXParser() *XLSXParser {
	return &XLSXParser{}
}

func (p *XLSXParser) Parse(file io.Reader) ([]RawRow, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, &models.InputError{Msg: fmt.Sprintf("failed to open xlsx: %v", err)}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &models.InputError{Msg: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &models.InputError{Msg: fmt.Sprintf("failed to read rows from xlsx: %v", err)}
	}

	var table [][]string
	for _, row := range rows {
		cells := make([]string, len(row))
		blank := true
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
			if cells[i] != "" {
				blank = false
			}
		}
		if !blank {
			table = append(table, cells)
		}
	}
	if len(table) == 0 {
		return nil, &models.InputError{Msg: "no data found in input"}
	}
	return buildRows(table), nil
}
