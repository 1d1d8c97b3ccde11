// Package reports renders batch results for download.
package reports

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/username/secid/backend/src/models"
	"github.com/username/secid/backend/src/security/validation"
)

// ErrorLogHeader is the column row shared by the CSV and XLSX error logs.
var ErrorLogHeader = []string{"Row", "Entity", "Field", "Error", "Severity", "Original Value", "Corrected Value"}

const noCorrection = "N/A"

// ErrorLogRow is one (record, error) pair of an error log.
type ErrorLogRow struct {
	RowNumber      int
	EntityName     string
	Field          string
	Message        string
	Severity       string
	OriginalValue  string
	CorrectedValue string
}

// ErrorLogRows lists every error of every error record, in record order.
func ErrorLogRows(result *models.BatchResult) []ErrorLogRow {
	var out []ErrorLogRow
	for _, r := range result.ErrorRecords {
		for _, fe := range r.Errors {
			corrected := r.Corrected[fe.Field]
			if corrected == "" {
				corrected = noCorrection
			}
			out = append(out, ErrorLogRow{
				RowNumber:      r.RowNumber,
				EntityName:     r.EntityName,
				Field:          string(fe.Field),
				Message:        fe.Message,
				Severity:       string(fe.Severity),
				OriginalValue:  r.Identifiers.Get(fe.Field),
				CorrectedValue: corrected,
			})
		}
	}
	return out
}

// StoredErrorLogRows converts the stored errors of a session. Errors saved
// without a correction show N/A.
func StoredErrorLogRows(stored []models.ValidationErrorRow) []ErrorLogRow {
	out := make([]ErrorLogRow, 0, len(stored))
	for _, ve := range stored {
		corrected := noCorrection
		if ve.CorrectedValue.Valid && ve.CorrectedValue.String != "" {
			corrected = ve.CorrectedValue.String
		}
		field := ve.Field
		if kind, ok := models.ParseIdentifierKind(field); ok {
			field = string(kind)
		}
		out = append(out, ErrorLogRow{
			RowNumber:      ve.RowNumber,
			EntityName:     ve.EntityName,
			Field:          field,
			Message:        ve.Message,
			Severity:       ve.Severity,
			OriginalValue:  ve.OriginalValue,
			CorrectedValue: corrected,
		})
	}
	return out
}

// WriteErrorLogCSV writes the error log with the entity and error columns always
// quoted. Other columns are written bare.
func WriteErrorLogCSV(w io.Writer, rows []ErrorLogRow) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(ErrorLogHeader, ",") + "\n"); err != nil {
		return err
	}
	for _, row := range rows {
		line := fmt.Sprintf("%d,%s,%s,%s,%s,%s,%s\n",
			row.RowNumber,
			quote(validation.SanitizeForFormulaInjection(row.EntityName)),
			row.Field,
			quote(row.Message),
			row.Severity,
			validation.SanitizeForFormulaInjection(row.OriginalValue),
			row.CorrectedValue)
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (r ErrorLogRow) cells() []any {
	return []any{
		r.RowNumber,
		validation.SanitizeForFormulaInjection(r.EntityName),
		r.Field,
		r.Message,
		r.Severity,
		validation.SanitizeForFormulaInjection(r.OriginalValue),
		r.CorrectedValue,
	}
}

// ErrorLogFilename names a downloaded error log, e.g. error_log_2026-10-18.csv.
func ErrorLogFilename(now time.Time, ext string) string {
	return "error_log_" + now.UTC().Format("2006-01-02") + "." + strings.TrimPrefix(ext, ".")
}

// DatabaseExportFilename names a downloaded database snapshot.
func DatabaseExportFilename(now time.Time) string {
	return "financial_id_database_" + now.UTC().Format("2006-01-02") + ".db"
}

// SessionFilename prefixes a filename with the session it came from.
func SessionFilename(sessionID int64, name string) string {
	return "session_" + strconv.FormatInt(sessionID, 10) + "_" + name
}
