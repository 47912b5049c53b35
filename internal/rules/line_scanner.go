package rules

import (
	"strings"
	"unicode/utf8"
)

const (
	ignoreDirective = "secwatch:ignore"
	annotationTag   = "SECURITY(secwatch:"
	maskedValue     = "********"
	excerptLimit    = 40
)

// splitLines splits on "\n" only; a trailing "\r" stays on its line so that
// joinLines gives back the exact input.
func splitLines(content string) []string {
	return strings.Split(content, "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// rewriteLine returns the whole file with line idx replaced.
func rewriteLine(lines []string, idx int, newLine string) string {
	out := make([]string, len(lines))
	copy(out, lines)
	out[idx] = newLine
	return joinLines(out)
}

// blankRange returns the whole file with lines from..to (inclusive) emptied.
func blankRange(lines []string, from, to int) string {
	out := make([]string, len(lines))
	copy(out, lines)
	for i := from; i <= to && i < len(out); i++ {
		if strings.HasSuffix(out[i], "\r") {
			out[i] = "\r"
			continue
		}
		out[i] = ""
	}
	return joinLines(out)
}

func splice(line string, start, end int, replacement string) string {
	return line[:start] + replacement + line[end:]
}

func runeColumn(line string, byteOffset int) int {
	return utf8.RuneCountInString(line[:byteOffset]) + 1
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= excerptLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:excerptLimit]) + "..."
}

func isIgnored(line string) bool {
	return strings.Contains(line, ignoreDirective)
}

// annotatedBy reports whether a previous remediation of ruleID already marked this line.
func annotatedBy(line, ruleID string) bool {
	return strings.Contains(line, annotationTag+ruleID+")")
}

type span struct{ start, end int }

func overlapsAny(spans []span, start, end int) bool {
	for _, s := range spans {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}
