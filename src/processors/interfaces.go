package processors

import "github.com/username/secid/backend/src/models"

// RecordClassifier turns one input row into a classified record.
type RecordClassifier interface {
	Classify(rowNumber int, entityName string, ids models.Identifiers) models.Record
}

// BatchAggregator builds the batch summary from classified records.
type BatchAggregator interface {
	Aggregate(records []models.Record) *models.BatchResult
}
