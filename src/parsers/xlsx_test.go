package parsers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/username/secid/backend/src/models"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestXLSXParser_Parse(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Entity", "ISIN", "LEI"},
		{"Apple ", "US0378331005", ""},
		{"", "", ""},
		{"Bank", "", "529900T8BM49AURSDO55"},
	})

	rows, err := GetParser("book.xlsx").Parse(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, RawRow{LineNumber: 2, EntityName: "Apple", Identifiers: models.Identifiers{ISIN: "US0378331005"}}, rows[0])
	assert.Equal(t, 3, rows[1].LineNumber)
	assert.Equal(t, "529900T8BM49AURSDO55", rows[1].Identifiers.LEI)
}

func TestXLSXParser_EmptyWorkbook(t *testing.T) {
	_, err := NewXLSXParser().Parse(workbook(t, nil))
	assert.ErrorIs(t, err, models.ErrInput)
}

func TestXLSXParser_NotAWorkbook(t *testing.T) {
	_, err := NewXLSXParser().Parse(bytes.NewBufferString("name,isin\n"))
	assert.ErrorIs(t, err, models.ErrInput)
}
