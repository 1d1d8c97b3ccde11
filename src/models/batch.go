package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// WarningEntry is one correction notice lifted out of a record.
type WarningEntry struct {
	RowNumber  int    `json:"row_num"`
	EntityName string `json:"name"`
	Message    string `json:"warning"`
}

// PresenceCounts counts records (valid or not) that supplied a non-empty value per scheme.
type PresenceCounts struct {
	ISIN  int `json:"isin"`
	CUSIP int `json:"cusip"`
	SEDOL int `json:"sedol"`
	LEI   int `json:"lei"`
}

// Add increments the counter for kind.
func (p *PresenceCounts) Add(kind IdentifierKind) {
	switch kind {
	case KindISIN:
		p.ISIN++
	case KindCUSIP:
		p.CUSIP++
	case KindSEDOL:
		p.SEDOL++
	case KindLEI:
		p.LEI++
	}
}

// ProcessingStats is informational throughput data for one pipeline run.
type ProcessingStats struct {
	RunID            string        `json:"run_id"`
	Elapsed          time.Duration `json:"elapsed_ns"`
	RecordsPerSecond float64       `json:"records_per_second"`
	InputSizeBytes   int64         `json:"input_size_bytes"`
	InputSize        string        `json:"input_size"`
}

// BatchResult aggregates the records of one processing run (or of a reloaded session).
type BatchResult struct {
	Total        int              `json:"total"`
	ValidCount   int              `json:"valid"`
	ErrorCount   int              `json:"errors"`
	WarningCount int              `json:"warnings"`
	ValidRecords []Record         `json:"valid_records"`
	ErrorRecords []Record         `json:"error_records"`
	Warnings     []WarningEntry   `json:"warnings_list"`
	Presence     PresenceCounts   `json:"identifier_stats"`
	Stats        *ProcessingStats `json:"processing_stats,omitempty"`
}

// AllRecords returns valid records followed by error records.
func (b *BatchResult) AllRecords() []Record {
	all := make([]Record, 0, len(b.ValidRecords)+len(b.ErrorRecords))
	all = append(all, b.ValidRecords...)
	return append(all, b.ErrorRecords...)
}

// RecordFilterKind selects which classification a record listing keeps.
type RecordFilterKind string

const (
	FilterAll    RecordFilterKind = "all"
	FilterErrors RecordFilterKind = "errors"
	FilterValid  RecordFilterKind = "valid"
)

// RecordSort orders a record listing.
type RecordSort string

const (
	SortByRow    RecordSort = "row"
	SortByErrors RecordSort = "errors"
)

// RecordFilter narrows the records of a batch for display or export.
type RecordFilter struct {
	Search string
	Kind   RecordFilterKind
	Sort   RecordSort
}

// NewRecordFilter builds a filter from user-supplied strings. Empty kind and
// sort select all records in row order.
func NewRecordFilter(search, kind, sortBy string) (RecordFilter, error) {
	f := RecordFilter{Search: search, Kind: FilterAll, Sort: SortByRow}
	switch k := RecordFilterKind(strings.ToLower(kind)); k {
	case "", FilterAll:
	case FilterErrors, FilterValid:
		f.Kind = k
	default:
		return f, &InputError{Msg: fmt.Sprintf("unknown filter '%s'", kind)}
	}
	switch s := RecordSort(strings.ToLower(sortBy)); s {
	case "", SortByRow:
	case SortByErrors:
		f.Sort = s
	default:
		return f, &InputError{Msg: fmt.Sprintf("unknown sort '%s'", sortBy)}
	}
	return f, nil
}

// FilterRecords matches Search case-insensitively against name, ISIN and CUSIP,
// keeps the requested classification and sorts by row (ascending) or error count (descending).
func (b *BatchResult) FilterRecords(f RecordFilter) []Record {
	needle := strings.ToLower(f.Search)
	out := []Record{}
	for _, r := range b.AllRecords() {
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.EntityName), needle) &&
			!strings.Contains(strings.ToLower(r.Identifiers.ISIN), needle) &&
			!strings.Contains(strings.ToLower(r.Identifiers.CUSIP), needle) {
			continue
		}
		switch f.Kind {
		case FilterErrors:
			if r.Status() != StatusError {
				continue
			}
		case FilterValid:
			if r.Status() != StatusValid {
				continue
			}
		}
		out = append(out, r)
	}

	switch f.Sort {
	case SortByErrors:
		sort.SliceStable(out, func(i, j int) bool { return len(out[i].Errors) > len(out[j].Errors) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].RowNumber < out[j].RowNumber })
	}
	return out
}
