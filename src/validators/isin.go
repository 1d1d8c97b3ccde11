package validators

import (
	"regexp"
	"strconv"

	"github.com/username/secid/backend/src/models"
)

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// ValidateISIN checks a 12-character ISIN: country prefix, nine alphanumerics and a Luhn check digit.
// On success the metadata carries the two-letter country code.
func ValidateISIN(raw string) models.ValidationOutcome {
	isin := normalize(raw)
	if isin == "" {
		return missing(models.KindISIN)
	}
	if !isinPattern.MatchString(isin) {
		return badFormat(models.KindISIN)
	}

	expected := strconv.Itoa(isinCheckDigit(isin))
	return verdict(models.KindISIN, isin[:11], isin[11:], expected, map[string]string{
		models.MetaCountryCode: isin[:2],
	})
}

// isinCheckDigit runs Luhn over the expanded digits of everything but the last character,
// doubling every second digit starting from the rightmost.
func isinCheckDigit(isin string) int {
	digits := expandDigits(isin[:len(isin)-1])
	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}
