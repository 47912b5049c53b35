package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aleister1102/secwatch/internal/models"
)

const RuleSensitiveDataLogging = "sensitive-data-logging"

var (
	logCall = regexp.MustCompile(
		`\b(?:console\.(?:log|info|debug|warn|error|trace)|print|println|printf|fmt\.(?:Print|Println|Printf|Fprint|Fprintf|Fprintln)|log\.\w+|logger\.\w+|logging\.\w+|System\.(?:out|err)\.print(?:ln|f)?|Log\.[dviwe])\s*\(`,
	)

	sensitiveVocabulary = regexp.MustCompile(
		`(?i)(password|passwd|secret|token|api_?key|access_?key|private_?key|credential|\bssn\b|credit_?card|card_?number|\bcvv\b|authorization|session_?id|cookie)`,
	)
)

// SensitiveLoggingRule flags log and print calls whose arguments mention a
// sensitive value, and comments the line out.
type SensitiveLoggingRule struct {
	baseRule
}

func NewSensitiveLoggingRule() *SensitiveLoggingRule {
	return &SensitiveLoggingRule{baseRule{
		id:          RuleSensitiveDataLogging,
		description: "Sensitive value written to logs or console",
		severity:    models.SeverityMedium,
	}}
}

func (r *SensitiveLoggingRule) Scan(content, filePath string) ([]models.Alert, error) {
	var alerts []models.Alert
	lines := splitLines(content)
	for i, line := range lines {
		if isIgnored(line) {
			continue
		}
		loc := logCall.FindStringIndex(line)
		if loc == nil || inComment(line, loc[0]) {
			continue
		}
		args := line[loc[1]:]
		word := sensitiveVocabulary.FindString(args)
		if word == "" {
			continue
		}

		text := strings.TrimRight(line[loc[0]:], " \t\r;")
		m := match{lineIndex: i, line: line, start: loc[0], text: text}
		fix := rewriteLine(lines, i, commentOut(line, filePath))
		message := fmt.Sprintf("Sensitive value '%s' logged: %s", strings.ToLower(word), excerpt(text))
		alerts = append(alerts, r.newAlert(filePath, content, m, message, fix))
	}
	return alerts, nil
}
