package rules

import (
	"time"

	"github.com/aleister1102/secwatch/internal/models"
	"github.com/google/uuid"
)

// Rule inspects one file's text and reports alerts.
// Implementations must not keep state between calls: the engine may run the
// same rule for different files at the same time.
type Rule interface {
	ID() string
	Description() string
	Severity() models.Severity
	Scan(content, filePath string) ([]models.Alert, error)
}

type baseRule struct {
	id          string
	description string
	severity    models.Severity
}

func (b baseRule) ID() string                { return b.id }
func (b baseRule) Description() string       { return b.description }
func (b baseRule) Severity() models.Severity { return b.severity }

// match locates one hit inside a file.
type match struct {
	lineIndex int
	line      string
	start     int // byte offset in line
	text      string
}

func (b baseRule) newAlert(filePath, content string, m match, message, proposedFix string) models.Alert {
	return models.Alert{
		ID:             uuid.NewString(),
		FilePath:       filePath,
		Severity:       b.severity,
		RuleID:         b.id,
		Message:        message,
		Line:           m.lineIndex + 1,
		Column:         runeColumn(m.line, m.start),
		CurrentContent: content,
		ProposedFix:    proposedFix,
		MatchedText:    m.text,
		Timestamp:      time.Now(),
	}
}
