package rules

import (
	"fmt"
	"regexp"

	"github.com/aleister1102/secwatch/internal/models"
)

const RuleVendorAPIKey = "vendor-api-key"

// VendorKeyPattern describes one provider's credential shape and the
// environment variable that should hold it instead.
type VendorKeyPattern struct {
	Name      string
	Regex     *regexp.Regexp
	EnvVar    string
	Reference string
}

func vendorKey(name, pattern, envVar string) VendorKeyPattern {
	return VendorKeyPattern{
		Name:      name,
		Regex:     regexp.MustCompile(pattern),
		EnvVar:    envVar,
		Reference: "process.env." + envVar,
	}
}

// DefaultVendorKeyPatterns is ordered; when two entries hit the same text the
// earlier one wins.
var DefaultVendorKeyPatterns = []VendorKeyPattern{
	vendorKey("AWS Access Key ID", `\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`, "AWS_ACCESS_KEY_ID"),
	vendorKey("GitHub Personal Access Token", `\bghp_[A-Za-z0-9]{36}\b`, "GITHUB_TOKEN"),
	vendorKey("GitHub OAuth Token", `\bgho_[A-Za-z0-9]{36}\b`, "GITHUB_TOKEN"),
	vendorKey("GitHub Fine-Grained Token", `\bgithub_pat_[A-Za-z0-9_]{60,}`, "GITHUB_TOKEN"),
	vendorKey("GitLab Personal Access Token", `\bglpat-[A-Za-z0-9_-]{20,}`, "GITLAB_TOKEN"),
	vendorKey("Slack Token", `\bxox[baprs]-[0-9A-Za-z-]{10,72}`, "SLACK_TOKEN"),
	vendorKey("Slack Webhook", `https://hooks\.slack\.com/services/T[A-Za-z0-9]{8,}/B[A-Za-z0-9]{8,}/[A-Za-z0-9]{24}`, "SLACK_WEBHOOK_URL"),
	vendorKey("Stripe Secret Key", `\bsk_live_[0-9A-Za-z]{24,}`, "STRIPE_SECRET_KEY"),
	vendorKey("Stripe Restricted Key", `\brk_live_[0-9A-Za-z]{24,}`, "STRIPE_RESTRICTED_KEY"),
	vendorKey("Google API Key", `\bAIza[0-9A-Za-z_-]{35}`, "GOOGLE_API_KEY"),
	vendorKey("Anthropic API Key", `\bsk-ant-[A-Za-z0-9_-]{32,}`, "ANTHROPIC_API_KEY"),
	vendorKey("OpenAI API Key", `\bsk-(?:proj-)?[A-Za-z0-9_-]{32,}`, "OPENAI_API_KEY"),
	vendorKey("SendGrid API Key", `\bSG\.[A-Za-z0-9_-]{22}\.[A-Za-z0-9_-]{43}`, "SENDGRID_API_KEY"),
	vendorKey("Twilio API Key", `\bSK[0-9a-fA-F]{32}\b`, "TWILIO_API_KEY"),
	vendorKey("Mailgun API Key", `\bkey-[0-9a-zA-Z]{32}\b`, "MAILGUN_API_KEY"),
	vendorKey("npm Access Token", `\bnpm_[A-Za-z0-9]{36}\b`, "NPM_TOKEN"),
	vendorKey("Shopify Access Token", `\bshp(?:at|ca|pa|ss)_[a-fA-F0-9]{32}\b`, "SHOPIFY_ACCESS_TOKEN"),
	vendorKey("Square Access Token", `\bsq0atp-[0-9A-Za-z_-]{22}`, "SQUARE_ACCESS_TOKEN"),
}

// VendorKeyRule finds provider API keys and swaps them for an environment reference.
type VendorKeyRule struct {
	baseRule
	patterns []VendorKeyPattern
}

func NewVendorKeyRule() *VendorKeyRule {
	return NewVendorKeyRuleWithPatterns(DefaultVendorKeyPatterns)
}

// NewVendorKeyRuleWithPatterns builds the rule over a custom table.
func NewVendorKeyRuleWithPatterns(patterns []VendorKeyPattern) *VendorKeyRule {
	return &VendorKeyRule{
		baseRule: baseRule{
			id:          RuleVendorAPIKey,
			description: "Provider API key or token committed in source",
			severity:    models.SeverityCritical,
		},
		patterns: patterns,
	}
}

func (r *VendorKeyRule) Scan(content, filePath string) ([]models.Alert, error) {
	if isTestPath(filePath) {
		return nil, nil
	}

	var alerts []models.Alert
	lines := splitLines(content)
	for i, line := range lines {
		if isIgnored(line) || isExampleLine(line) {
			continue
		}

		var taken []span
		for _, p := range r.patterns {
			for _, loc := range p.Regex.FindAllStringIndex(line, -1) {
				start, end := loc[0], loc[1]
				if overlapsAny(taken, start, end) {
					continue
				}
				taken = append(taken, span{start, end})
				if inComment(line, start) || referencesEnvironment(line, start) {
					continue
				}

				from, to := expandQuotes(line, start, end)
				m := match{lineIndex: i, line: line, start: start, text: line[start:end]}
				fix := rewriteLine(lines, i, splice(line, from, to, p.Reference))
				message := fmt.Sprintf("%s detected: %s", p.Name, excerpt(m.text))
				alerts = append(alerts, r.newAlert(filePath, content, m, message, fix))
			}
		}
	}
	return alerts, nil
}
