package models

// Identifiers holds the raw identifier strings of one input row, one field per scheme.
type Identifiers struct {
	ISIN  string `json:"isin"`
	CUSIP string `json:"cusip"`
	SEDOL string `json:"sedol"`
	LEI   string `json:"lei"`
}

// Get returns the value stored for kind.
func (ids Identifiers) Get(kind IdentifierKind) string {
	switch kind {
	case KindISIN:
		return ids.ISIN
	case KindCUSIP:
		return ids.CUSIP
	case KindSEDOL:
		return ids.SEDOL
	case KindLEI:
		return ids.LEI
	}
	return ""
}

// Set stores value for kind.
func (ids *Identifiers) Set(kind IdentifierKind, value string) {
	switch kind {
	case KindISIN:
		ids.ISIN = value
	case KindCUSIP:
		ids.CUSIP = value
	case KindSEDOL:
		ids.SEDOL = value
	case KindLEI:
		ids.LEI = value
	}
}

// FieldError is one failed identifier check inside a record.
type FieldError struct {
	Field    IdentifierKind `json:"field"`
	Message  string         `json:"error"`
	Severity Severity       `json:"severity"`
}

// RecordStatus is the classification of a record, also persisted as identifiers.status.
type RecordStatus string

const (
	StatusValid RecordStatus = "VALID"
	StatusError RecordStatus = "ERROR"
)

// Record is one input row after classification.
type Record struct {
	RowNumber   int                                  `json:"row_num"`
	EntityName  string                               `json:"name"`
	Identifiers Identifiers                          `json:"identifiers"`
	Errors      []FieldError                         `json:"errors"`
	Warnings    []string                             `json:"warnings"`
	Corrected   map[IdentifierKind]string            `json:"corrected"`
	Metadata    map[IdentifierKind]map[string]string `json:"metadata"`
}

// NewRecord returns an empty record ready for classification.
func NewRecord(rowNumber int, entityName string, ids Identifiers) Record {
	return Record{
		RowNumber:   rowNumber,
		EntityName:  entityName,
		Identifiers: ids,
		Errors:      []FieldError{},
		Warnings:    []string{},
		Corrected:   map[IdentifierKind]string{},
		Metadata:    map[IdentifierKind]map[string]string{},
	}
}

// Status is ERROR iff the record carries at least one error.
func (r Record) Status() RecordStatus {
	if len(r.Errors) > 0 {
		return StatusError
	}
	return StatusValid
}

// PreferredValue returns the corrected value for kind if one exists, else the raw value.
func (r Record) PreferredValue(kind IdentifierKind) string {
	if corrected, ok := r.Corrected[kind]; ok && corrected != "" {
		return corrected
	}
	return r.Identifiers.Get(kind)
}

// MetadataValue looks up a single metadata entry extracted for kind.
func (r Record) MetadataValue(kind IdentifierKind, key string) string {
	if meta, ok := r.Metadata[kind]; ok {
		return meta[key]
	}
	return ""
}
