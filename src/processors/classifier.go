package processors

import (
	"fmt"

	"github.com/username/secid/backend/src/models"
	"github.com/username/secid/backend/src/validators"
)

// recordClassifierImpl implements the RecordClassifier interface.
type recordClassifierImpl struct{}

// NewRecordClassifier creates a new instance of RecordClassifier.
func NewRecordClassifier() RecordClassifier {
	return &recordClassifierImpl{}
}

func (c *recordClassifierImpl) Classify(rowNumber int, entityName string, ids models.Identifiers) models.Record {
	return ClassifyRecord(rowNumber, entityName, ids)
}

// ClassifyRecord runs every non-empty identifier of a row through its validator.
// A failure never stops the remaining fields from being checked.
func ClassifyRecord(rowNumber int, entityName string, ids models.Identifiers) models.Record {
	record := models.NewRecord(rowNumber, entityName, ids)

	for _, kind := range models.IdentifierKinds {
		raw := ids.Get(kind)
		if raw == "" {
			continue
		}

		outcome := validators.Validate(kind, raw)
		if outcome.Valid {
			record.Metadata[kind] = outcome.Metadata
			continue
		}

		record.Errors = append(record.Errors, models.FieldError{
			Field:    kind,
			Message:  outcome.ErrorMessage,
			Severity: outcome.Severity,
		})
		if outcome.HasCorrection() {
			record.Corrected[kind] = outcome.CorrectedValue
			record.Warnings = append(record.Warnings, CorrectionWarning(kind, raw, outcome.CorrectedValue))
		}
	}
	return record
}

// CorrectionWarning formats the notice attached to a record when a check digit was fixed.
func CorrectionWarning(kind models.IdentifierKind, original, corrected string) string {
	return fmt.Sprintf("%s corrected: %s → %s", kind, original, corrected)
}
