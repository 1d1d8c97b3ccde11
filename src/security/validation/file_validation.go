package validation

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/username/secid/backend/src/logger"
)

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
var AllowedClientContentTypes = map[string]bool{
	"text/csv":                  true,
	"application/csv":           true,
	"text/tab-separated-values": true,
	"application/vnd.ms-excel":  true, // older Excel labels CSV this way
	"text/plain":                true,
	"application/octet-stream":  true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// AllowedUploadExtensions lists the file extensions accepted for identifier uploads.
var AllowedUploadExtensions = map[string]bool{
	".csv":  true,
	".tsv":  true,
	".tab":  true,
	".txt":  true,
	".xlsx": true,
}

var allowedTextTypes = map[string]bool{
	"text/plain":               true,
	"text/csv":                 true,
	"application/csv":          true,
	"application/octet-stream": true,
}

// Workbooks are zip containers.
var allowedWorkbookTypes = map[string]bool{
	"application/zip": true,
}

// ValidateClientContentType checks the Content-Type header provided by the client.
// Parameters such as charset are ignored.
func ValidateClientContentType(contentType string) error {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if allowed, exists := AllowedClientContentTypes[mediaType]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for identifier upload", contentType)
	}
	return nil
}

// ValidateUploadFilename rejects names whose extension is not a delimited text format.
func ValidateUploadFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !AllowedUploadExtensions[ext] {
		logger.L.Warn("Disallowed upload extension", "filename", filename)
		return fmt.Errorf("file '%s' is not a .csv, .tsv, .txt or .xlsx file", filepath.Base(filename))
	}
	return nil
}

// ValidateFileContentByMagicBytes sniffs the first 512 bytes of file and rewinds it.
// It returns the detected content type and an error if the content does not match
// what filename's extension promises: a workbook for .xlsx, plain text otherwise.
func ValidateFileContentByMagicBytes(file io.ReadSeeker, filename string) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", err)
	}

	detected := http.DetectContentType(buffer[:n])
	detected = strings.ToLower(strings.Split(detected, ";")[0])

	allowed, expected := allowedTextTypes, "delimited text"
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		allowed, expected = allowedWorkbookTypes, "an xlsx workbook"
	}
	if !allowed[detected] {
		logger.L.Warn("Disallowed detected file content type (magic bytes)", "detectedContentType", detected, "filename", filename)
		return detected, fmt.Errorf("detected file content type '%s' is not consistent with %s", detected, expected)
	}

	logger.L.Debug("File content type (magic bytes) validated", "detectedContentType", detected)
	return detected, nil
}
