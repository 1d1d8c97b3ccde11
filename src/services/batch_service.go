// backend/src/services/batch_service.go
package services

import (
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/username/secid/backend/src/logger"
	"github.com/username/secid/backend/src/models"
	"github.com/username/secid/backend/src/parsers"
	"github.com/username/secid/backend/src/processors"
)

type batchServiceImpl struct {
	classifier processors.RecordClassifier
	aggregator processors.BatchAggregator
	now        func() time.Time
}

func NewBatchService(classifier processors.RecordClassifier, aggregator processors.BatchAggregator) BatchService {
	return &batchServiceImpl{
		classifier: classifier,
		aggregator: aggregator,
		now:        time.Now,
	}
}

// ProcessText runs comma-separated text through the pipeline.
func (s *batchServiceImpl) ProcessText(text string) (*models.BatchResult, error) {
	return s.Process(strings.NewReader(text), "")
}

// Process parses file, classifies every row and aggregates the result. The
// parser is chosen from filename's extension.
func (s *batchServiceImpl) Process(file io.Reader, filename string) (*models.BatchResult, error) {
	runID := uuid.NewString()
	start := s.now()
	logger.L.Info("Process START", "runID", runID, "filename", filename)

	counter := &countingReader{r: file}
	rows, err := parsers.GetParser(filename).Parse(counter)
	if err != nil {
		logger.L.Warn("Input rejected", "runID", runID, "error", err)
		return nil, err
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, s.classifier.Classify(row.LineNumber, row.EntityName, row.Identifiers))
	}
	result := s.aggregator.Aggregate(records)

	elapsed := s.now().Sub(start)
	result.Stats = &models.ProcessingStats{
		RunID:            runID,
		Elapsed:          elapsed,
		RecordsPerSecond: throughput(result.Total, elapsed),
		InputSizeBytes:   counter.n,
		InputSize:        humanize.Bytes(uint64(counter.n)),
	}

	logger.L.Info("Process END", "runID", runID, "records", result.Total,
		"valid", result.ValidCount, "errors", result.ErrorCount, "warnings", result.WarningCount,
		"duration", elapsed, "inputSize", result.Stats.InputSize)
	return result, nil
}

func throughput(records int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(records) / elapsed.Seconds()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
