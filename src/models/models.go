package models

import "strings"

// IdentifierKind tags an identifier value with the scheme it belongs to.
type IdentifierKind string

const (
	KindISIN  IdentifierKind = "ISIN"
	KindCUSIP IdentifierKind = "CUSIP"
	KindSEDOL IdentifierKind = "SEDOL"
	KindLEI   IdentifierKind = "LEI"
)

// IdentifierKinds lists every supported scheme in the order records are validated.
var IdentifierKinds = []IdentifierKind{KindISIN, KindCUSIP, KindSEDOL, KindLEI}

// Column returns the lowercase column name used for the kind in input headers and in the identifiers table.
func (k IdentifierKind) Column() string {
	return strings.ToLower(string(k))
}

// ParseIdentifierKind resolves a kind from a case-insensitive name.
func ParseIdentifierKind(name string) (IdentifierKind, bool) {
	switch IdentifierKind(strings.ToUpper(strings.TrimSpace(name))) {
	case KindISIN:
		return KindISIN, true
	case KindCUSIP:
		return KindCUSIP, true
	case KindSEDOL:
		return KindSEDOL, true
	case KindLEI:
		return KindLEI, true
	}
	return "", false
}

// Severity grades a failed identifier check.
type Severity string

const (
	SeverityMedium Severity = "medium" // checksum mismatch, correction available
	SeverityHigh   Severity = "high"   // structural mismatch or missing value
)

// Verdict says why a validation outcome is what it is.
type Verdict int

const (
	VerdictValid Verdict = iota
	VerdictMissing
	VerdictFormat
	VerdictChecksum
)

func (v Verdict) String() string {
	switch v {
	case VerdictValid:
		return "valid"
	case VerdictMissing:
		return "missing"
	case VerdictFormat:
		return "format"
	case VerdictChecksum:
		return "checksum"
	}
	return "unknown"
}

// Metadata keys extracted from valid identifiers.
const (
	MetaCountryCode = "country_code" // ISIN
	MetaIssuerCode  = "issuer_code"  // CUSIP
	MetaLOUCode     = "lou_code"     // LEI
)

// ValidationOutcome is the verdict for a single identifier string.
// CorrectedValue is only set for checksum failures.
type ValidationOutcome struct {
	Kind           IdentifierKind    `json:"kind"`
	Valid          bool              `json:"valid"`
	Verdict        Verdict           `json:"-"`
	ErrorMessage   string            `json:"error,omitempty"`
	CorrectedValue string            `json:"corrected,omitempty"`
	Severity       Severity          `json:"severity,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// HasCorrection reports whether a deterministic correction was produced.
func (o ValidationOutcome) HasCorrection() bool {
	return o.CorrectedValue != ""
}
