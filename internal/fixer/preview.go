package fixer

import (
	"strings"

	"github.com/aleister1102/secwatch/internal/models"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Previewer describes a whole-file replacement as line statistics and a patch.
type Previewer struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewPreviewer creates a new Previewer
func NewPreviewer() *Previewer {
	return &Previewer{dmp: diffmatchpatch.New()}
}

// Preview compares before and after without touching disk.
func (p *Previewer) Preview(alertID, filePath, before, after string) *models.FixPreview {
	preview := &models.FixPreview{
		FilePath: filePath,
		AlertID:  alertID,
	}

	for _, diff := range p.lineDiffs(before, after) {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			preview.Insertions += countLines(diff.Text)
		case diffmatchpatch.DiffDelete:
			preview.Deletions += countLines(diff.Text)
		}
	}

	if before != after {
		patches := p.dmp.PatchMake(before, after)
		preview.Patch = p.dmp.PatchToText(patches)
	}
	return preview
}

func (p *Previewer) lineDiffs(before, after string) []diffmatchpatch.Diff {
	a, b, lines := p.dmp.DiffLinesToChars(before, after)
	diffs := p.dmp.DiffMain(a, b, false)
	return p.dmp.DiffCharsToLines(diffs, lines)
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
