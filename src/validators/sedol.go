package validators

import (
	"regexp"
	"strconv"

	"github.com/username/secid/backend/src/models"
)

// Vowels are not part of the SEDOL alphabet.
var sedolPattern = regexp.MustCompile(`^[B-DF-HJ-NP-TV-Z0-9]{6}[0-9]$`)

var sedolWeights = [6]int{1, 3, 1, 7, 3, 9}

// ValidateSEDOL checks a 7-character SEDOL. SEDOLs carry no extractable metadata.
func ValidateSEDOL(raw string) models.ValidationOutcome {
	sedol := normalize(raw)
	if sedol == "" {
		return missing(models.KindSEDOL)
	}
	if !sedolPattern.MatchString(sedol) {
		return badFormat(models.KindSEDOL)
	}

	expected := strconv.Itoa(sedolCheckDigit(sedol))
	return verdict(models.KindSEDOL, sedol[:6], sedol[6:], expected, map[string]string{})
}

func sedolCheckDigit(sedol string) int {
	sum := 0
	for i, w := range sedolWeights {
		sum += charValue(sedol[i]) * w
	}
	return (10 - sum%10) % 10
}
