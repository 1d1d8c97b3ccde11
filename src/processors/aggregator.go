package processors

import "github.com/username/secid/backend/src/models"

type batchAggregatorImpl struct{}

// NewBatchAggregator creates a new instance of BatchAggregator.
func NewBatchAggregator() BatchAggregator {
	return &batchAggregatorImpl{}
}

// Aggregate partitions records into valid and error sequences in input order,
// flattens their warnings and counts identifier presence.
func (a *batchAggregatorImpl) Aggregate(records []models.Record) *models.BatchResult {
	result := &models.BatchResult{
		Total:        len(records),
		ValidRecords: []models.Record{},
		ErrorRecords: []models.Record{},
		Warnings:     []models.WarningEntry{},
	}

	for _, r := range records {
		if r.Status() == models.StatusError {
			result.ErrorRecords = append(result.ErrorRecords, r)
		} else {
			result.ValidRecords = append(result.ValidRecords, r)
		}
		for _, w := range r.Warnings {
			result.Warnings = append(result.Warnings, models.WarningEntry{
				RowNumber:  r.RowNumber,
				EntityName: r.EntityName,
				Message:    w,
			})
		}
	}

	result.ValidCount = len(result.ValidRecords)
	result.ErrorCount = len(result.ErrorRecords)
	result.WarningCount = len(result.Warnings)
	result.Presence = CountPresence(records)
	return result
}

// CountPresence counts, per scheme, the records that supplied a non-empty value.
func CountPresence(records []models.Record) models.PresenceCounts {
	var counts models.PresenceCounts
	for _, r := range records {
		for _, kind := range models.IdentifierKinds {
			if r.Identifiers.Get(kind) != "" {
				counts.Add(kind)
			}
		}
	}
	return counts
}
