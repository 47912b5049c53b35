package rules

import (
	"fmt"
	"regexp"

	"github.com/aleister1102/secwatch/internal/models"
)

const RulePermissiveCORS = "permissive-cors"

// corsShape captures the wildcard token in group 1 and names the config
// reference that should replace it.
type corsShape struct {
	name      string
	regex     *regexp.Regexp
	reference string
}

var corsShapes = []corsShape{
	{
		name:      "Access-Control-Allow-Origin header set to *",
		regex:     regexp.MustCompile(`(?i)access-control-allow-origin["']\s*,\s*(["']\*["'])`),
		reference: "process.env.CORS_ALLOWED_ORIGIN",
	},
	{
		name:      "Access-Control-Allow-Origin header map entry set to *",
		regex:     regexp.MustCompile(`(?i)["']access-control-allow-origin["']\s*:\s*(["']\*["'])`),
		reference: "process.env.CORS_ALLOWED_ORIGIN",
	},
	{
		name:      "cors origin option allows any origin",
		regex:     regexp.MustCompile(`\borigin\s*:\s*(["']\*["']|true\b)`),
		reference: "process.env.CORS_ALLOWED_ORIGIN",
	},
	{
		name:      "allow_origins wildcard",
		regex:     regexp.MustCompile(`(?i)\ballow_origins\s*=\s*\[\s*(["']\*["'])\s*\]`),
		reference: `os.environ["CORS_ALLOWED_ORIGIN"]`,
	},
	{
		name:      "AllowedOrigins wildcard",
		regex:     regexp.MustCompile(`\bAllowedOrigins\s*:\s*\[\]string\{\s*("\*")\s*\}`),
		reference: `os.Getenv("CORS_ALLOWED_ORIGIN")`,
	},
	{
		name:      "@CrossOrigin wildcard",
		regex:     regexp.MustCompile(`@CrossOrigin\s*\(\s*(?:origins\s*=\s*)?("\*")`),
		reference: `"${cors.allowed-origin}"`,
	},
	{
		name:      "nginx add_header wildcard",
		regex:     regexp.MustCompile(`(?i)\badd_header\s+Access-Control-Allow-Origin\s+(["']?\*["']?)`),
		reference: "$cors_allowed_origin",
	},
}

// CORSRule flags allow-all cross-origin policies. Only the wildcard token is
// replaced, by a configuration reference.
type CORSRule struct {
	baseRule
}

func NewCORSRule() *CORSRule {
	return &CORSRule{baseRule{
		id:          RulePermissiveCORS,
		description: "Cross-origin policy allows any origin",
		severity:    models.SeverityMedium,
	}}
}

func (r *CORSRule) Scan(content, filePath string) ([]models.Alert, error) {
	var alerts []models.Alert
	lines := splitLines(content)
	for i, line := range lines {
		if isIgnored(line) {
			continue
		}

		var taken []span
		for _, shape := range corsShapes {
			for _, loc := range shape.regex.FindAllStringSubmatchIndex(line, -1) {
				start, end := loc[0], loc[1]
				if overlapsAny(taken, loc[2], loc[3]) {
					continue
				}
				taken = append(taken, span{loc[2], loc[3]})
				if inComment(line, start) {
					continue
				}

				m := match{lineIndex: i, line: line, start: start, text: line[start:end]}
				fix := rewriteLine(lines, i, splice(line, loc[2], loc[3], shape.reference))
				message := fmt.Sprintf("Permissive CORS policy (%s): %s", shape.name, excerpt(m.text))
				alerts = append(alerts, r.newAlert(filePath, content, m, message, fix))
			}
		}
	}
	return alerts, nil
}
