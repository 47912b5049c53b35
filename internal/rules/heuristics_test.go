package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommentStart(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{line: "const x = 1; // note", want: 13},
		{line: "# comment", want: 0},
		{line: "  -- sql comment", want: 2},
		{line: " * doc line", want: 1},
		{line: "x = 1 /* c */", want: 6},
		{line: "<!-- html -->", want: 0},
		{line: `const url = "http://x.io";`, want: -1},
		{line: "url = http://x.io", want: -1},
		{line: `a = "#not a comment"`, want: -1},
		{line: `s = 'it\'s // fine'`, want: -1},
		{line: "a#b", want: -1},
		{line: "", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, commentStart(tt.line))
		})
	}
}

func TestIsTestPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "src/app.js", want: false},
		{path: "test/app.js", want: true},
		{path: "src/__tests__/app.js", want: true},
		{path: "src/app.test.js", want: true},
		{path: "src/app.spec.ts", want: true},
		{path: "pkg/foo_test.go", want: true},
		{path: "tools/test_utils.py", want: true},
		{path: "internal/testdata/keys.pem", want: true},
		{path: "/tmp/TestScan123/app.js", want: false},
		{path: "src/contest.js", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isTestPath(tt.path))
		})
	}
}

func TestIsPlaceholder(t *testing.T) {
	for _, v := range []string{"", "********", "${SECRET}", "{{ .Token }}", "<your-key>", "changeme", "TODO", "xxxx"} {
		assert.True(t, isPlaceholder(v), v)
	}
	for _, v := range []string{"hunter22", "s3cr3t-value", "mysecretpassword"} {
		assert.False(t, isPlaceholder(v), v)
	}
}

func TestReferencesEnvironment(t *testing.T) {
	line := `const key = process.env.KEY || "value"`
	assert.True(t, referencesEnvironment(line, len(line)-6))
	assert.False(t, referencesEnvironment(`const key = "value"`, 12))
}

func TestCommentStyleFor(t *testing.T) {
	tests := []struct {
		path string
		want commentStyle
	}{
		{path: "main.go", want: slashComment},
		{path: "app.py", want: hashComment},
		{path: "Dockerfile", want: hashComment},
		{path: ".env.production", want: hashComment},
		{path: "schema.sql", want: dashComment},
		{path: "site.css", want: blockComment},
		{path: "index.html", want: htmlComment},
		{path: "noext", want: slashComment},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, commentStyleFor(tt.path))
		})
	}
}

func TestAnnotate(t *testing.T) {
	assert.Equal(t,
		"eval(x); // SECURITY(secwatch:dynamic-code-execution): check",
		annotate("eval(x);  ", "a.js", RuleDynamicCodeExecution, "check"))
	assert.Equal(t,
		"a { } /* SECURITY(secwatch:weak-crypto): check */\r",
		annotate("a { }\r", "a.css", RuleWeakCrypto, "check"))
}

func TestCommentOut(t *testing.T) {
	assert.Equal(t, "    // console.log(x);", commentOut("    console.log(x);", "a.js"))
	assert.Equal(t, "<!-- <p>{{ token }}</p> -->\r", commentOut("<p>{{ token }}</p>\r", "a.html"))
}

func TestExcerptAndColumn(t *testing.T) {
	assert.Equal(t, "short", excerpt("  short  "))
	long := "0123456789012345678901234567890123456789abc"
	assert.Equal(t, long[:40]+"...", excerpt(long))

	// é is two bytes but one column.
	assert.Equal(t, 3, runeColumn("é password", 3))
}
