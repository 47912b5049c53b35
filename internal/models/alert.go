package models

import "time"

// Severity ranks how urgently an alert needs attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank returns a sortable weight, higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether s is one of the known severities.
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// Alert is a single detected issue in one file.
// CurrentContent is the whole file as it was when scanned and is the baseline
// a fix request must match. ProposedFix is a complete replacement body, not a diff.
type Alert struct {
	ID             string    `json:"id"`
	FilePath       string    `json:"filePath"`
	Severity       Severity  `json:"severity"`
	RuleID         string    `json:"ruleId"`
	Message        string    `json:"message"`
	Line           int       `json:"line"`
	Column         int       `json:"column"`
	CurrentContent string    `json:"currentContent"`
	ProposedFix    string    `json:"proposedFix"`
	MatchedText    string    `json:"matchedText"`
	Timestamp      time.Time `json:"timestamp"`
}

// FixPayload builds the fix request that applies this alert's proposed fix.
func (a Alert) FixPayload() FixPayload {
	original := a.CurrentContent
	replacement := a.ProposedFix
	return FixPayload{
		AlertID:            a.ID,
		FilePath:           a.FilePath,
		OriginalContent:    &original,
		ReplacementContent: &replacement,
	}
}
