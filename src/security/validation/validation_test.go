package validation

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeForFormulaInjection(t *testing.T) {
	tests := map[string]string{
		"=SUM(A1)":     "'=SUM(A1)",
		"  +1":         "'  +1",
		"-2":           "'-2",
		"@cmd":         "'@cmd",
		"Apple Inc":    "Apple Inc",
		"US0378331005": "US0378331005",
		"":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeForFormulaInjection(in), in)
	}
}

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "a\tb\nc", StripUnprintable("a\tb\x00\nc\x07"))
}

func TestCleanSessionName(t *testing.T) {
	assert.Equal(t, "Q3 review", CleanSessionName("  Q3\x00 review\n"))
	assert.Empty(t, CleanSessionName(" \t\n"))
}

func TestValidateClientContentType(t *testing.T) {
	assert.NoError(t, ValidateClientContentType("text/csv"))
	assert.NoError(t, ValidateClientContentType("Text/CSV; charset=utf-8"))
	assert.NoError(t, ValidateClientContentType("text/tab-separated-values"))
	assert.NoError(t, ValidateClientContentType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	assert.Error(t, ValidateClientContentType("image/png"))
}

func TestValidateUploadFilename(t *testing.T) {
	assert.NoError(t, ValidateUploadFilename("ids.csv"))
	assert.NoError(t, ValidateUploadFilename("IDS.TSV"))
	assert.NoError(t, ValidateUploadFilename("notes.txt"))
	assert.NoError(t, ValidateUploadFilename("ids.xlsx"))
	assert.Error(t, ValidateUploadFilename("ids.xls"))
	assert.Error(t, ValidateUploadFilename("noext"))
}

func TestValidateFileContentByMagicBytes(t *testing.T) {
	csv := bytes.NewReader([]byte("name,isin\nApple,US0378331005\n"))
	detected, err := ValidateFileContentByMagicBytes(csv, "ids.csv")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", detected)

	rest, err := io.ReadAll(csv)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(rest), "name,isin"), "reader is rewound")

	png := bytes.NewReader([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	detected, err = ValidateFileContentByMagicBytes(png, "ids.csv")
	assert.Error(t, err)
	assert.Equal(t, "image/png", detected)

	_, err = ValidateFileContentByMagicBytes(nil, "ids.csv")
	assert.Error(t, err)
}

func TestValidateFileContentByMagicBytes_Workbook(t *testing.T) {
	zipHeader := []byte("PK\x03\x04\x14\x00\x06\x00\x08\x00\x00\x00!\x00")

	detected, err := ValidateFileContentByMagicBytes(bytes.NewReader(zipHeader), "book.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "application/zip", detected)

	_, err = ValidateFileContentByMagicBytes(bytes.NewReader([]byte("name,isin\n")), "book.xlsx")
	assert.Error(t, err, "text posing as a workbook")

	_, err = ValidateFileContentByMagicBytes(bytes.NewReader(zipHeader), "ids.csv")
	assert.Error(t, err, "zip posing as text")
}
