package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aleister1102/secwatch/internal/models"
)

const RulePrivateKeyBlock = "private-key-block"

var privateKeyBegin = regexp.MustCompile(`-----BEGIN ((?:[A-Z0-9]+ )*)PRIVATE KEY(?: BLOCK)?-----`)

// PrivateKeyRule finds PEM private key blocks. Its fix blanks the BEGIN line and
// every following line through the matching END marker, or to the end of the
// file when the block is never closed.
type PrivateKeyRule struct {
	baseRule
}

func NewPrivateKeyRule() *PrivateKeyRule {
	return &PrivateKeyRule{baseRule{
		id:          RulePrivateKeyBlock,
		description: "PEM private key block committed in source",
		severity:    models.SeverityCritical,
	}}
}

func (r *PrivateKeyRule) Scan(content, filePath string) ([]models.Alert, error) {
	if isTestPath(filePath) {
		return nil, nil
	}

	var alerts []models.Alert
	lines := splitLines(content)
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if isIgnored(line) {
			continue
		}
		loc := privateKeyBegin.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}

		keyType := line[loc[2]:loc[3]]
		endMarker := "-----END " + keyType + "PRIVATE KEY"
		last := findEndMarker(lines, i, loc[1], endMarker)

		m := match{lineIndex: i, line: line, start: loc[0], text: line[loc[0]:loc[1]]}
		fix := blankRange(lines, i, last)
		message := fmt.Sprintf("Private key block (%d lines): %s", last-i+1, excerpt(m.text))
		alerts = append(alerts, r.newAlert(filePath, content, m, message, fix))

		i = last
	}
	return alerts, nil
}

// findEndMarker returns the index of the line closing the block opened on line
// begin (searching that line after offset first), or the last line of the file.
func findEndMarker(lines []string, begin, offset int, endMarker string) int {
	if containsFrom(lines[begin], offset, endMarker) {
		return begin
	}
	for j := begin + 1; j < len(lines); j++ {
		if containsFrom(lines[j], 0, endMarker) {
			return j
		}
	}
	return len(lines) - 1
}

func containsFrom(line string, offset int, needle string) bool {
	if offset > len(line) {
		return false
	}
	return strings.Contains(line[offset:], needle)
}
