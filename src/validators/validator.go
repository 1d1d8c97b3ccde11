// Package validators implements format and check-digit validation for
// ISIN, CUSIP, SEDOL and LEI identifiers. All checks are pure and use
// integer arithmetic only.
package validators

import (
	"fmt"
	"strings"

	"github.com/username/secid/backend/src/models"
)

// Validator checks one raw identifier string.
type Validator func(raw string) models.ValidationOutcome

var registry = map[models.IdentifierKind]Validator{
	models.KindISIN:  ValidateISIN,
	models.KindCUSIP: ValidateCUSIP,
	models.KindSEDOL: ValidateSEDOL,
	models.KindLEI:   ValidateLEI,
}

// Validate dispatches raw to the validator for kind.
func Validate(kind models.IdentifierKind, raw string) models.ValidationOutcome {
	v, ok := registry[kind]
	if !ok {
		return models.ValidationOutcome{
			Kind:         kind,
			Verdict:      models.VerdictFormat,
			ErrorMessage: fmt.Sprintf("Unsupported identifier type %q", string(kind)),
			Severity:     models.SeverityHigh,
		}
	}
	return v(raw)
}

func normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func missing(kind models.IdentifierKind) models.ValidationOutcome {
	return models.ValidationOutcome{
		Kind:         kind,
		Verdict:      models.VerdictMissing,
		ErrorMessage: fmt.Sprintf("Missing or invalid %s", kind),
		Severity:     models.SeverityHigh,
	}
}

func badFormat(kind models.IdentifierKind) models.ValidationOutcome {
	return models.ValidationOutcome{
		Kind:         kind,
		Verdict:      models.VerdictFormat,
		ErrorMessage: fmt.Sprintf("Invalid %s format", kind),
		Severity:     models.SeverityHigh,
	}
}

// verdict builds the outcome once the format passed and the check value is known.
// body is the normalized value without its check characters.
func verdict(kind models.IdentifierKind, body, given, expected string, meta map[string]string) models.ValidationOutcome {
	if given == expected {
		return models.ValidationOutcome{
			Kind:     kind,
			Valid:    true,
			Verdict:  models.VerdictValid,
			Metadata: meta,
		}
	}
	return models.ValidationOutcome{
		Kind:           kind,
		Verdict:        models.VerdictChecksum,
		ErrorMessage:   "Invalid checksum",
		CorrectedValue: body + expected,
		Severity:       models.SeverityMedium,
	}
}

// charValue maps 0-9 to 0-9 and A-Z to 10-35.
func charValue(c byte) int {
	if c >= '0' && c <= '9' {
		return int(c - '0')
	}
	return int(c) - 55
}

// expandDigits replaces every letter by its two-digit value and returns the digit sequence.
func expandDigits(s string) []int {
	digits := make([]int, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		v := charValue(s[i])
		if v >= 10 {
			digits = append(digits, v/10, v%10)
			continue
		}
		digits = append(digits, v)
	}
	return digits
}
