package validators

import (
	"regexp"
	"strconv"

	"github.com/username/secid/backend/src/models"
)

var cusipPattern = regexp.MustCompile(`^[0-9]{3}[A-Z0-9]{5}[0-9]$`)

// ValidateCUSIP checks a 9-character CUSIP. On success the metadata carries
// the six-character issuer code.
func ValidateCUSIP(raw string) models.ValidationOutcome {
	cusip := normalize(raw)
	if cusip == "" {
		return missing(models.KindCUSIP)
	}
	if !cusipPattern.MatchString(cusip) {
		return badFormat(models.KindCUSIP)
	}

	expected := strconv.Itoa(cusipCheckDigit(cusip))
	return verdict(models.KindCUSIP, cusip[:8], cusip[8:], expected, map[string]string{
		models.MetaIssuerCode: cusip[:6],
	})
}

func cusipCheckDigit(cusip string) int {
	sum := 0
	for i := 0; i < 8; i++ {
		v := charValue(cusip[i])
		if i%2 == 1 {
			v *= 2
		}
		sum += v/10 + v%10
	}
	return (10 - sum%10) % 10
}
