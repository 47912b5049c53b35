package fixer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/aleister1102/secwatch/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ApplierOptions configures an Applier.
type ApplierOptions struct {
	// Root, when set, confines fixes to files beneath it.
	Root string
	// Journal, when set, records every attempt.
	Journal *Journal
}

// Applier writes proposed fixes to disk, but only while the file still holds
// exactly the content the fix was computed from. No lock is held between that
// check and the write; an edit landing in between is lost.
type Applier struct {
	logger      zerolog.Logger
	fileManager *common.FileManager
	validate    *validator.Validate
	previewer   *Previewer
	journal     *Journal
	root        string
}

// target is a request that passed every pre-write check.
type target struct {
	path    string
	current []byte
}

// NewApplier creates an Applier. Root is resolved once here.
func NewApplier(logger zerolog.Logger, opts ApplierOptions) (*Applier, error) {
	a := &Applier{
		logger:      logger.With().Str("module", "FixApplier").Logger(),
		fileManager: common.NewFileManager(logger),
		validate:    newPayloadValidator(),
		previewer:   NewPreviewer(),
		journal:     opts.Journal,
	}

	if opts.Root != "" {
		root, err := canonicalPath(opts.Root)
		if err != nil {
			return nil, common.WrapErrorf(err, "resolve fix root %s", opts.Root)
		}
		a.root = root
	}
	return a, nil
}

// ApplyFix replaces the file named in payload with its replacement content.
// The returned response is always filled in; on failure it carries the error
// text and kind, and the same error is returned.
func (a *Applier) ApplyFix(ctx context.Context, payload models.FixPayload) (models.FixResponse, error) {
	resp := models.FixResponse{
		FilePath: payload.FilePath,
		AlertID:  payload.AlertID,
	}

	t, err := a.check(ctx, payload)
	if err == nil {
		resp.FilePath = t.path
		err = a.fileManager.WriteFileAtomic(t.path, []byte(*payload.ReplacementContent), common.FileWriteOptions{})
	}
	a.record(ctx, payload, t, err)

	if err != nil {
		resp.Error = err.Error()
		resp.ErrorKind = common.KindOf(err)
		a.logger.Warn().Err(err).
			Str("alert_id", payload.AlertID).
			Str("path", payload.FilePath).
			Str("kind", string(resp.ErrorKind)).
			Msg("Fix rejected")
		return resp, err
	}

	resp.Success = true
	a.logger.Info().Str("alert_id", payload.AlertID).Str("path", t.path).Msg("Fix applied")
	return resp, nil
}

// ValidateFix runs every check ApplyFix would and describes the change,
// without writing.
func (a *Applier) ValidateFix(ctx context.Context, payload models.FixPayload) (*models.FixPreview, error) {
	t, err := a.check(ctx, payload)
	if err != nil {
		return nil, err
	}
	return a.previewer.Preview(payload.AlertID, t.path, string(t.current), *payload.ReplacementContent), nil
}

func (a *Applier) check(ctx context.Context, payload models.FixPayload) (*target, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validatePayload(a.validate, payload); err != nil {
		return nil, err
	}

	path, err := canonicalPath(payload.FilePath)
	if err != nil {
		return nil, accessError(err, payload.FilePath)
	}
	if a.root != "" && !within(a.root, path) {
		return nil, common.NewValidationError("filePath", payload.FilePath, "is outside the watched directory")
	}

	current, err := readWritable(path)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(current, []byte(*payload.OriginalContent)) {
		return nil, common.NewStaleContentError(path)
	}
	return &target{path: path, current: current}, nil
}

func (a *Applier) record(ctx context.Context, payload models.FixPayload, t *target, err error) {
	if a.journal == nil {
		return
	}

	rec := models.FixRecord{
		AlertID:  payload.AlertID,
		FilePath: payload.FilePath,
		Success:  err == nil,
	}
	if t != nil {
		rec.FilePath = t.path
		rec.BytesBefore = len(t.current)
	}
	if err != nil {
		rec.Error = err.Error()
		rec.ErrorKind = common.KindOf(err)
	} else if payload.ReplacementContent != nil {
		rec.BytesAfter = len(*payload.ReplacementContent)
	}

	// The fix has already happened or failed; a cancelled request still gets journaled.
	if _, jerr := a.journal.Record(context.WithoutCancel(ctx), rec); jerr != nil {
		a.logger.Error().Err(jerr).Str("alert_id", payload.AlertID).Msg("Failed to journal fix attempt")
	}
}

// readWritable returns the content of a regular file that can be opened for
// writing.
func readWritable(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, accessError(err, path)
	}
	if !info.Mode().IsRegular() {
		return nil, common.WrapErrorf(common.ErrNotFound, "%s is not a regular file", path)
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, accessError(err, path)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, common.WrapErrorf(err, "read %s", path)
	}
	return content, nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func accessError(err error, path string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return common.WrapErrorf(common.ErrNotFound, "file %s", path)
	case errors.Is(err, fs.ErrPermission):
		return common.WrapErrorf(common.ErrPermissionDenied, "file %s", path)
	default:
		return common.WrapErrorf(err, "access %s", path)
	}
}
