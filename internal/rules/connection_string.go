package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aleister1102/secwatch/internal/models"
)

const RuleConnectionString = "connection-string-credentials"

// Group 1 scheme, 2 user, 3 password.
var connectionString = regexp.MustCompile(
	"(?i)\\b(mongodb(?:\\+srv)?|postgres(?:ql)?|mysql|mariadb|rediss?|amqps?|mssql|sqlserver)://([^\\s:@/'\"`]+):([^\\s@/'\"`]+)@[^\\s'\"`]+",
)

var connectionReferences = map[string]string{
	"mongodb":     "process.env.MONGODB_URI",
	"mongodb+srv": "process.env.MONGODB_URI",
	"redis":       "process.env.REDIS_URL",
	"rediss":      "process.env.REDIS_URL",
	"amqp":        "process.env.AMQP_URL",
	"amqps":       "process.env.AMQP_URL",
}

func connectionReference(scheme string) string {
	if ref, ok := connectionReferences[strings.ToLower(scheme)]; ok {
		return ref
	}
	return "process.env.DATABASE_URL"
}

// ConnectionStringRule finds data-store URLs that embed a user and password.
type ConnectionStringRule struct {
	baseRule
}

func NewConnectionStringRule() *ConnectionStringRule {
	return &ConnectionStringRule{baseRule{
		id:          RuleConnectionString,
		description: "Database or broker connection string with embedded credentials",
		severity:    models.SeverityCritical,
	}}
}

func (r *ConnectionStringRule) Scan(content, filePath string) ([]models.Alert, error) {
	if isTestPath(filePath) {
		return nil, nil
	}

	var alerts []models.Alert
	lines := splitLines(content)
	for i, line := range lines {
		if isIgnored(line) || isExampleLine(line) {
			continue
		}
		for _, loc := range connectionString.FindAllStringSubmatchIndex(line, -1) {
			start, end := loc[0], loc[1]
			password := line[loc[6]:loc[7]]
			if isPlaceholder(password) || strings.ContainsAny(password, "{}$%") {
				continue
			}
			if inComment(line, start) || referencesEnvironment(line, start) {
				continue
			}

			scheme := line[loc[2]:loc[3]]
			from, to := expandQuotes(line, start, end)
			m := match{lineIndex: i, line: line, start: start, text: line[start:end]}
			fix := rewriteLine(lines, i, splice(line, from, to, connectionReference(scheme)))
			message := fmt.Sprintf("Connection string with embedded credentials (%s): %s", strings.ToLower(scheme), excerpt(m.text))
			alerts = append(alerts, r.newAlert(filePath, content, m, message, fix))
		}
	}
	return alerts, nil
}
