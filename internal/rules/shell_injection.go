package rules

import (
	"regexp"

	"github.com/aleister1102/secwatch/internal/models"
)

const RuleShellInjection = "shell-injection"

var shellSpawnCalls = []callPattern{
	{name: "child_process", regex: regexp.MustCompile(`\bchild_process\.(?:exec|execSync|spawn|spawnSync|execFile|execFileSync)\s*\(`)},
	{name: "exec/spawn", regex: regexp.MustCompile(`\b(?:exec|execSync|spawn|spawnSync|execFile|execFileSync)\s*\(`), bare: true},
	{name: "os.system/os.popen", regex: regexp.MustCompile(`\bos\.(?:system|popen)\s*\(`)},
	{name: "subprocess", regex: regexp.MustCompile(`\bsubprocess\.(?:call|run|Popen|check_output|check_call)\s*\(`)},
	{name: "exec.Command", regex: regexp.MustCompile(`\bexec\.Command(?:Context)?\s*\(`)},
	{name: "Runtime.exec", regex: regexp.MustCompile(`\bRuntime\.getRuntime\(\)\.exec\s*\(`)},
	{name: "shell function", regex: regexp.MustCompile(`\b(?:shell_exec|system|passthru|proc_open|popen)\s*\(`), bare: true},
}

// Arguments built by concatenation, interpolation, or taken from request/argv input.
var taintedShellArgs = regexp.MustCompile(
	"[\"'`]\\s*\\+|\\+\\s*[\"'`A-Za-z_]|\\$\\{|%[sdv]|\\bf[\"']|\\.format\\(|\\b(?:req|request)\\.(?:body|query|params|args|form|GET|POST|headers)|process\\.argv|sys\\.argv|os\\.Args|\\$_(?:GET|POST|REQUEST|COOKIE)|\\binput\\(|\\bparams\\[",
)

// ShellInjectionRule flags process-spawning calls whose arguments are built
// from dynamic input, and annotates them for manual review.
type ShellInjectionRule struct {
	baseRule
}

func NewShellInjectionRule() *ShellInjectionRule {
	return &ShellInjectionRule{baseRule{
		id:          RuleShellInjection,
		description: "Shell command built from concatenated or external input",
		severity:    models.SeverityHigh,
	}}
}

func (r *ShellInjectionRule) Scan(content, filePath string) ([]models.Alert, error) {
	return scanCalls(r.baseRule, shellSpawnCalls, content, filePath,
		func(name string) (string, string) {
			return "Unsanitized shell invocation via " + name,
				"shell command built from dynamic input, review for injection"
		},
		taintedShellArgs.MatchString)
}
