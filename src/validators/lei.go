package validators

import (
	"fmt"
	"regexp"

	"github.com/username/secid/backend/src/models"
)

var leiPattern = regexp.MustCompile(`^[A-Z0-9]{18}[0-9]{2}$`)

// ValidateLEI checks a 20-character LEI against its ISO 7064 MOD 97-10 check pair.
// On success the metadata carries the four-character LOU prefix.
func ValidateLEI(raw string) models.ValidationOutcome {
	lei := normalize(raw)
	if lei == "" {
		return missing(models.KindLEI)
	}
	if !leiPattern.MatchString(lei) {
		return badFormat(models.KindLEI)
	}

	expected := leiCheckDigits(lei[:18])
	return verdict(models.KindLEI, lei[:18], lei[18:], expected, map[string]string{
		models.MetaLOUCode: lei[:4],
	})
}

// leiCheckDigits reduces body+"00" modulo 97 one digit at a time so the full
// number never has to be materialized.
func leiCheckDigits(body string) string {
	remainder := 0
	for _, d := range expandDigits(body + "00") {
		remainder = (remainder*10 + d) % 97
	}
	return fmt.Sprintf("%02d", 98-remainder)
}
