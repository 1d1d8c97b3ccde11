// backend/src/parsers/delimited.go
package parsers

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dimchansky/utfbom"

	"github.com/username/secid/backend/src/models"
)

const maxLineBytes = 1 << 20

// DelimitedParser splits each line on a single delimiter rune. Quoted fields and
// escaped delimiters are not recognized.
type DelimitedParser struct {
	Delimiter rune
}

func NewDelimitedParser(delimiter rune) *DelimitedParser {
	return &DelimitedParser{Delimiter: delimiter}
}

func (p *DelimitedParser) Parse(file io.Reader) ([]RawRow, error) {
	lines, err := nonBlankLines(file)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &models.InputError{Msg: "no data found in input"}
	}

	table := make([][]string, len(lines))
	for i, line := range lines {
		table[i] = p.split(line)
	}
	return buildRows(table), nil
}

func (p *DelimitedParser) split(line string) []string {
	parts := strings.Split(line, string(p.Delimiter))
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func nonBlankLines(file io.Reader) ([]string, error) {
	// Spreadsheet exports often start with a byte order mark.
	scanner := bufio.NewScanner(utfbom.SkipOnly(file))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &models.InputError{Msg: fmt.Sprintf("failed to read input: %v", err)}
	}
	return lines, nil
}
