package rules

import (
	"fmt"
	"regexp"

	"github.com/aleister1102/secwatch/internal/models"
)

const RuleDynamicCodeExecution = "dynamic-code-execution"

type callPattern struct {
	name  string
	regex *regexp.Regexp
	// bare calls are skipped when invoked as a member, e.g. model.eval().
	bare bool
}

var dynamicCodeCalls = []callPattern{
	{name: "eval", regex: regexp.MustCompile(`\beval\s*\(`), bare: true},
	{name: "Function constructor", regex: regexp.MustCompile(`\bnew\s+Function\s*\(`)},
	{name: "string timer", regex: regexp.MustCompile("\\bset(?:Timeout|Interval)\\s*\\(\\s*[\"'`]"), bare: true},
	{name: "vm context", regex: regexp.MustCompile(`\bvm\.runIn(?:New|This)?Context\s*\(`)},
	{name: "execScript", regex: regexp.MustCompile(`\bexecScript\s*\(`), bare: true},
}

// DynamicCodeRule flags calls that evaluate strings as code. The fix only
// annotates the line for review.
type DynamicCodeRule struct {
	baseRule
}

func NewDynamicCodeRule() *DynamicCodeRule {
	return &DynamicCodeRule{baseRule{
		id:          RuleDynamicCodeExecution,
		description: "String evaluated as code at runtime",
		severity:    models.SeverityHigh,
	}}
}

func (r *DynamicCodeRule) Scan(content, filePath string) ([]models.Alert, error) {
	return scanCalls(r.baseRule, dynamicCodeCalls, content, filePath,
		func(name string) (string, string) {
			return fmt.Sprintf("Dynamic code execution via %s", name),
				"dynamic code execution, review required"
		}, nil)
}

// scanCalls reports the first matching call per line and annotates it.
// accept, when set, gets the text after the call's match and can veto it.
func scanCalls(
	rule baseRule,
	calls []callPattern,
	content, filePath string,
	describe func(name string) (message, note string),
	accept func(args string) bool,
) ([]models.Alert, error) {
	var alerts []models.Alert
	lines := splitLines(content)
	for i, line := range lines {
		if isIgnored(line) || annotatedBy(line, rule.id) {
			continue
		}
		for _, call := range calls {
			loc := firstCall(line, call)
			if loc == nil {
				continue
			}
			start, end := loc[0], loc[1]
			if inComment(line, start) {
				continue
			}
			if accept != nil && !accept(line[end:]) {
				continue
			}

			message, note := describe(call.name)
			m := match{lineIndex: i, line: line, start: start, text: line[start:end]}
			fix := rewriteLine(lines, i, annotate(line, filePath, rule.id, note))
			alerts = append(alerts, rule.newAlert(filePath, content, m, fmt.Sprintf("%s: %s", message, excerpt(line)), fix))
			break
		}
	}
	return alerts, nil
}

func firstCall(line string, call callPattern) []int {
	for _, loc := range call.regex.FindAllStringIndex(line, -1) {
		if call.bare && loc[0] > 0 && line[loc[0]-1] == '.' {
			continue
		}
		return loc
	}
	return nil
}
