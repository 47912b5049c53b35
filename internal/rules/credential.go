package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aleister1102/secwatch/internal/models"
)

// credentialAssignment matches `name = "value"`, `name: 'value'`, `name := "value"`
// and `"name": "value"` for password and secret-like names. The keyword may
// sit anywhere in the identifier, so SECRET_KEY and db_password_value match.
// Group 1 is the name, group 2 the literal value.
var credentialAssignment = regexp.MustCompile(
	`(?i)\b([a-z0-9_]*?(?:password|passwd|pwd|secret|api[_-]?key|apikey|access[_-]?token|auth[_-]?token|client[_-]?secret|private[_-]?key|token)[a-z0-9_]*)["']?\s*(?::=|[:=])\s*["']([^"'\r\n]{4,})["']`,
)

const (
	RuleHardcodedCredential = "hardcoded-credential"
	RuleSecretInComment     = "secret-in-comment"
)

// CredentialRule finds password and secret literals assigned in code and masks the value.
type CredentialRule struct {
	baseRule
}

func NewCredentialRule() *CredentialRule {
	return &CredentialRule{baseRule{
		id:          RuleHardcodedCredential,
		description: "Hardcoded password, secret or token literal",
		severity:    models.SeverityCritical,
	}}
}

func (r *CredentialRule) Scan(content, filePath string) ([]models.Alert, error) {
	if isTestPath(filePath) {
		return nil, nil
	}

	var alerts []models.Alert
	lines := splitLines(content)
	for i, line := range lines {
		if isIgnored(line) || isExampleLine(line) {
			continue
		}
		for _, loc := range credentialAssignment.FindAllStringSubmatchIndex(line, -1) {
			start, end := loc[0], loc[1]
			valueStart, valueEnd := loc[4], loc[5]
			value := line[valueStart:valueEnd]

			if inComment(line, start) || referencesEnvironment(line, start) || isPlaceholder(value) {
				continue
			}

			m := match{lineIndex: i, line: line, start: start, text: line[start:end]}
			fix := rewriteLine(lines, i, splice(line, valueStart, valueEnd, maskedValue))
			message := fmt.Sprintf("Hardcoded credential in '%s': %s", line[loc[2]:loc[3]], excerpt(m.text))
			alerts = append(alerts, r.newAlert(filePath, content, m, message, fix))
		}
	}
	return alerts, nil
}

// CommentSecretRule finds credential literals left behind in comments and
// replaces the comment with a removal notice. Code before a trailing comment
// is kept.
type CommentSecretRule struct {
	baseRule
}

func NewCommentSecretRule() *CommentSecretRule {
	return &CommentSecretRule{baseRule{
		id:          RuleSecretInComment,
		description: "Credential value left in a code comment",
		severity:    models.SeverityHigh,
	}}
}

func (r *CommentSecretRule) Scan(content, filePath string) ([]models.Alert, error) {
	var alerts []models.Alert
	lines := splitLines(content)
	for i, line := range lines {
		if isIgnored(line) {
			continue
		}
		commentAt := commentStart(line)
		if commentAt < 0 {
			continue
		}
		for _, loc := range credentialAssignment.FindAllStringSubmatchIndex(line, -1) {
			start, end := loc[0], loc[1]
			if start < commentAt || isPlaceholder(line[loc[4]:loc[5]]) {
				continue
			}

			m := match{lineIndex: i, line: line, start: start, text: line[start:end]}
			fix := rewriteLine(lines, i, scrubComment(line, commentAt, "secret removed from comment (secwatch)"))
			message := fmt.Sprintf("Credential in comment: %s", excerpt(m.text))
			alerts = append(alerts, r.newAlert(filePath, content, m, message, fix))
			// The whole comment is replaced, one alert per line is enough.
			break
		}
	}
	return alerts, nil
}

// commentMarkerAt returns the comment opener found at pos, plus the closer
// when the original line closes its comment itself.
func commentMarkerAt(line string, pos int) (string, string) {
	rest := line[pos:]
	closerIf := func(closer string) string {
		if strings.Contains(rest, closer) {
			return closer
		}
		return ""
	}
	switch {
	case strings.HasPrefix(rest, "<!--"):
		return "<!--", closerIf("-->")
	case strings.HasPrefix(rest, "/*"):
		return "/*", closerIf("*/")
	case strings.HasPrefix(rest, "*"):
		return "*", closerIf("*/")
	case strings.HasPrefix(rest, "//"):
		return "//", ""
	case strings.HasPrefix(rest, "--"):
		return "--", ""
	case strings.HasPrefix(rest, "#"):
		return "#", ""
	default:
		return "//", ""
	}
}

// scrubComment swaps the comment starting at commentAt for notice. Code in
// front of the comment, and after a closed block comment, stays as it was.
func scrubComment(line string, commentAt int, notice string) string {
	marker, closer := commentMarkerAt(line, commentAt)
	if strings.TrimSpace(line[:commentAt]) == "" {
		return replaceWithNotice(line, marker, notice, closer)
	}

	body, cr := strings.CutSuffix(line, "\r")
	var tail string
	if closer != "" {
		if end := strings.Index(body[commentAt+len(marker):], closer); end >= 0 {
			tail = body[commentAt+len(marker)+end+len(closer):]
		}
	}

	out := body[:commentAt] + marker + " " + notice
	if closer != "" {
		out += " " + closer
	}
	out += tail
	if cr {
		out += "\r"
	}
	return out
}
