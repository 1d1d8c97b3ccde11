package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/secid/backend/src/models"
)

func TestClassifyRecord_AllValid(t *testing.T) {
	r := ClassifyRecord(2, "Apple", models.Identifiers{
		ISIN:  "US0378331005",
		CUSIP: "037833100",
		LEI:   "HWUPKR0MPOU8FGXBT394",
	})

	assert.Equal(t, models.StatusValid, r.Status())
	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Warnings)
	assert.Empty(t, r.Corrected)
	assert.Equal(t, "US", r.MetadataValue(models.KindISIN, models.MetaCountryCode))
	assert.Equal(t, "037833", r.MetadataValue(models.KindCUSIP, models.MetaIssuerCode))
	assert.Equal(t, "HWUP", r.MetadataValue(models.KindLEI, models.MetaLOUCode))
	_, hasSEDOL := r.Metadata[models.KindSEDOL]
	assert.False(t, hasSEDOL, "absent identifiers are skipped entirely")
}

func TestClassifyRecord_ChecksumAndFormatErrors(t *testing.T) {
	r := ClassifyRecord(5, "Mixed", models.Identifiers{
		ISIN:  "US0378331004",
		CUSIP: "ABC",
		SEDOL: "0263491",
		LEI:   "529900T8BM49AURSDO55",
	})

	require.Equal(t, models.StatusError, r.Status())
	require.Len(t, r.Errors, 3)
	assert.Equal(t, models.FieldError{Field: models.KindISIN, Message: "Invalid checksum", Severity: models.SeverityMedium}, r.Errors[0])
	assert.Equal(t, models.FieldError{Field: models.KindCUSIP, Message: "Invalid CUSIP format", Severity: models.SeverityHigh}, r.Errors[1])
	assert.Equal(t, models.KindSEDOL, r.Errors[2].Field)

	assert.Equal(t, map[models.IdentifierKind]string{
		models.KindISIN:  "US0378331005",
		models.KindSEDOL: "0263494",
	}, r.Corrected)
	assert.Equal(t, []string{
		"ISIN corrected: US0378331004 → US0378331005",
		"SEDOL corrected: 0263491 → 0263494",
	}, r.Warnings)

	// the valid LEI still contributes metadata on an error record
	assert.Equal(t, "5299", r.MetadataValue(models.KindLEI, models.MetaLOUCode))
	assert.Equal(t, "US0378331005", r.PreferredValue(models.KindISIN))
	assert.Equal(t, "ABC", r.PreferredValue(models.KindCUSIP))
}

func TestClassifyRecord_WarningKeepsRawValue(t *testing.T) {
	r := ClassifyRecord(2, "Lower", models.Identifiers{ISIN: "us0378331004"})
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, "ISIN corrected: us0378331004 → US0378331005", r.Warnings[0])
}

func TestRecordClassifier_Interface(t *testing.T) {
	c := NewRecordClassifier()
	r := c.Classify(3, "BAE", models.Identifiers{SEDOL: "0263494"})
	assert.Equal(t, 3, r.RowNumber)
	assert.Equal(t, "BAE", r.EntityName)
	assert.Equal(t, models.StatusValid, r.Status())
}

func TestBatchAggregator_Aggregate(t *testing.T) {
	records := []models.Record{
		ClassifyRecord(2, "Apple", models.Identifiers{ISIN: "US0378331005", CUSIP: "037833100"}),
		ClassifyRecord(3, "Broken", models.Identifiers{ISIN: "US0378331004", SEDOL: "0263491"}),
		ClassifyRecord(4, "Empty", models.Identifiers{}),
		ClassifyRecord(5, "BadFormat", models.Identifiers{LEI: "nope"}),
	}

	result := NewBatchAggregator().Aggregate(records)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.ValidCount)
	assert.Equal(t, 2, result.ErrorCount)
	assert.Equal(t, 2, result.WarningCount)

	require.Len(t, result.ValidRecords, 2)
	assert.Equal(t, 2, result.ValidRecords[0].RowNumber)
	assert.Equal(t, 4, result.ValidRecords[1].RowNumber)
	require.Len(t, result.ErrorRecords, 2)
	assert.Equal(t, 3, result.ErrorRecords[0].RowNumber)
	assert.Equal(t, 5, result.ErrorRecords[1].RowNumber)

	assert.Equal(t, []models.WarningEntry{
		{RowNumber: 3, EntityName: "Broken", Message: "ISIN corrected: US0378331004 → US0378331005"},
		{RowNumber: 3, EntityName: "Broken", Message: "SEDOL corrected: 0263491 → 0263494"},
	}, result.Warnings)

	assert.Equal(t, models.PresenceCounts{ISIN: 2, CUSIP: 1, SEDOL: 1, LEI: 1}, result.Presence)
	assert.Nil(t, result.Stats)
}

func TestBatchAggregator_Empty(t *testing.T) {
	result := NewBatchAggregator().Aggregate(nil)
	assert.Zero(t, result.Total)
	assert.NotNil(t, result.ValidRecords)
	assert.NotNil(t, result.ErrorRecords)
	assert.NotNil(t, result.Warnings)
}
