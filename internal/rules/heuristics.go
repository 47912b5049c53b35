package rules

import (
	"path/filepath"
	"regexp"
	"strings"
)

const envLookbackBytes = 40

var (
	envReadShapes = []string{
		"process.env",
		"import.meta.env",
		"os.environ",
		"os.getenv",
		"os.Getenv",
		"os.LookupEnv",
		"System.getenv",
		"ENV[",
		"ENV.fetch",
		"getenv(",
		"env(",
		"${",
	}

	testPathSegments = map[string]bool{
		"test":      true,
		"tests":     true,
		"__tests__": true,
		"spec":      true,
		"specs":     true,
		"mock":      true,
		"mocks":     true,
		"__mocks__": true,
		"fixture":   true,
		"fixtures":  true,
		"testdata":  true,
	}

	testFileName = regexp.MustCompile(`(?i)(\.(test|spec|mock)\.[a-z0-9]+$|_test\.go$|^test_.*\.py$|_spec\.rb$)`)
	exampleWord  = regexp.MustCompile(`(?i)\b(example|examples|sample|samples)\b`)

	placeholderValues = map[string]bool{
		"changeme": true,
		"password": true,
		"xxx":      true,
		"xxxx":     true,
		"redacted": true,
		"none":     true,
		"null":     true,
		"todo":     true,
	}
)

// commentStart returns the byte offset where a comment begins on line, or -1.
// Markers inside string literals are ignored by tracking quote state from the
// start of the line, so an odd number of quotes before a marker means the
// marker is inside a string.
func commentStart(line string) int {
	trimmed := strings.TrimLeft(line, " \t")
	indent := len(line) - len(trimmed)
	switch {
	case strings.HasPrefix(trimmed, "--"):
		return indent
	case strings.HasPrefix(trimmed, "*") && (len(trimmed) == 1 || trimmed[1] == ' ' || trimmed[1] == '/' || trimmed[1] == '\t'):
		return indent
	}

	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'', '`':
			quote = c
		case '/':
			if i+1 < len(line) && (line[i+1] == '/' || line[i+1] == '*') {
				if line[i+1] == '/' && i > 0 && line[i-1] == ':' {
					continue
				}
				return i
			}
		case '#':
			if i == 0 || line[i-1] == ' ' || line[i-1] == '\t' {
				return i
			}
		case '<':
			if strings.HasPrefix(line[i:], "<!--") {
				return i
			}
		}
	}
	return -1
}

// inComment reports whether the byte offset pos on line lies inside a comment.
func inComment(line string, pos int) bool {
	start := commentStart(line)
	return start >= 0 && start <= pos
}

// referencesEnvironment reports whether the text just before pos already reads
// from the environment, e.g. `process.env.KEY || "..."`.
func referencesEnvironment(line string, pos int) bool {
	from := pos - envLookbackBytes
	if from < 0 {
		from = 0
	}
	window := line[from:pos]
	for _, shape := range envReadShapes {
		if strings.Contains(window, shape) {
			return true
		}
	}
	return false
}

// isTestPath reports whether filePath looks like test, fixture or mock content.
func isTestPath(filePath string) bool {
	slashed := filepath.ToSlash(filePath)
	for _, segment := range strings.Split(slashed, "/") {
		if testPathSegments[strings.ToLower(segment)] {
			return true
		}
	}
	return testFileName.MatchString(filepath.Base(slashed))
}

func isExampleLine(line string) bool {
	return exampleWord.MatchString(line)
}

// isPlaceholder reports whether a literal value is obviously not a real secret.
func isPlaceholder(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	if strings.Trim(v, "*") == "" {
		return true
	}
	for _, prefix := range []string{"${", "{{", "<", "%(", "$("} {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return placeholderValues[strings.ToLower(v)]
}

// expandQuotes widens [start,end) to include a surrounding pair of matching quotes.
func expandQuotes(line string, start, end int) (int, int) {
	if start == 0 || end >= len(line) {
		return start, end
	}
	before, after := line[start-1], line[end]
	if before == after && (before == '"' || before == '\'' || before == '`') {
		return start - 1, end + 1
	}
	return start, end
}

type commentStyle struct {
	open  string
	close string
}

var (
	slashComment = commentStyle{open: "//"}
	hashComment  = commentStyle{open: "#"}
	dashComment  = commentStyle{open: "--"}
	blockComment = commentStyle{open: "/*", close: "*/"}
	htmlComment  = commentStyle{open: "<!--", close: "-->"}
)

func commentStyleFor(filePath string) commentStyle {
	base := strings.ToLower(filepath.Base(filePath))
	switch base {
	case "dockerfile", "makefile", "gemfile", "rakefile", "procfile", ".env":
		return hashComment
	}
	if strings.HasPrefix(base, ".env.") || strings.HasPrefix(base, "dockerfile.") {
		return hashComment
	}

	switch strings.ToLower(filepath.Ext(base)) {
	case ".py", ".rb", ".sh", ".bash", ".zsh", ".yaml", ".yml", ".toml", ".conf", ".cfg",
		".ini", ".env", ".pl", ".r", ".ps1", ".tf", ".properties", ".nginx":
		return hashComment
	case ".sql", ".lua", ".hs":
		return dashComment
	case ".css", ".scss", ".less":
		return blockComment
	case ".html", ".htm", ".xml", ".md":
		return htmlComment
	default:
		return slashComment
	}
}

// annotate appends a review note to line, leaving its code untouched.
func annotate(line, filePath, ruleID, note string) string {
	style := commentStyleFor(filePath)
	body, cr := strings.CutSuffix(line, "\r")
	text := style.open + " " + annotationTag + ruleID + "): " + note
	if style.close != "" {
		text += " " + style.close
	}
	out := strings.TrimRight(body, " \t") + " " + text
	if cr {
		out += "\r"
	}
	return out
}

// commentOut turns line into a comment, keeping its indentation.
func commentOut(line, filePath string) string {
	style := commentStyleFor(filePath)
	body, cr := strings.CutSuffix(line, "\r")
	trimmed := strings.TrimLeft(body, " \t")
	indent := body[:len(body)-len(trimmed)]
	out := indent + style.open + " " + trimmed
	if style.close != "" {
		out += " " + style.close
	}
	if cr {
		out += "\r"
	}
	return out
}

// replaceWithNotice swaps the whole line for a comment carrying notice.
func replaceWithNotice(line, marker, notice string, closer string) string {
	body, cr := strings.CutSuffix(line, "\r")
	trimmed := strings.TrimLeft(body, " \t")
	indent := body[:len(body)-len(trimmed)]
	out := indent + marker + " " + notice
	if closer != "" {
		out += " " + closer
	}
	if cr {
		out += "\r"
	}
	return out
}
