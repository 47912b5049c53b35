package rules

import (
	"fmt"
	"regexp"

	"github.com/aleister1102/secwatch/internal/models"
)

const (
	RuleJWTToken = "jwt-token"

	jwtReference = "process.env.JWT_TOKEN"
)

var jwtShape = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)

// JWTRule finds three-segment bearer tokens.
type JWTRule struct {
	baseRule
}

func NewJWTRule() *JWTRule {
	return &JWTRule{baseRule{
		id:          RuleJWTToken,
		description: "Encoded JWT bearer token committed in source",
		severity:    models.SeverityHigh,
	}}
}

func (r *JWTRule) Scan(content, filePath string) ([]models.Alert, error) {
	if isTestPath(filePath) {
		return nil, nil
	}

	var alerts []models.Alert
	lines := splitLines(content)
	for i, line := range lines {
		if isIgnored(line) || isExampleLine(line) {
			continue
		}
		for _, loc := range jwtShape.FindAllStringIndex(line, -1) {
			start, end := loc[0], loc[1]
			if inComment(line, start) || referencesEnvironment(line, start) {
				continue
			}

			from, to := expandQuotes(line, start, end)
			m := match{lineIndex: i, line: line, start: start, text: line[start:end]}
			fix := rewriteLine(lines, i, splice(line, from, to, jwtReference))
			alerts = append(alerts, r.newAlert(filePath, content, m, fmt.Sprintf("JWT token detected: %s", excerpt(m.text)), fix))
		}
	}
	return alerts, nil
}
