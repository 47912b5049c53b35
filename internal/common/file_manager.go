package common

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FileInfo contains metadata about a file
type FileInfo struct {
	Path        string      // Full file path
	Name        string      // File name only
	Size        int64       // File size in bytes
	IsDir       bool        // Whether it's a directory
	ModTime     time.Time   // Last modification time
	Permissions fs.FileMode // File permissions
}

// FileReadOptions configures file reading behavior
type FileReadOptions struct {
	MaxSize int64           // Maximum file size to read (0 = no limit)
	Context context.Context // Context for cancellation
}

// FileWriteOptions configures file writing behavior
type FileWriteOptions struct {
	CreateDirs  bool        // Whether to create parent directories
	Permissions fs.FileMode // Used when the target does not exist yet
}

// DefaultFileReadOptions returns default file reading options
func DefaultFileReadOptions() FileReadOptions {
	return FileReadOptions{
		MaxSize: 10 * 1024 * 1024,
		Context: context.Background(),
	}
}

// DefaultFileWriteOptions returns default file writing options
func DefaultFileWriteOptions() FileWriteOptions {
	return FileWriteOptions{
		CreateDirs:  false,
		Permissions: 0644,
	}
}

// atomicTempMarker is part of every temp file name WriteFileAtomic creates.
const atomicTempMarker = ".secwatch-"

// IsAtomicTempFile reports whether path names a WriteFileAtomic temp file.
func IsAtomicTempFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && strings.Contains(base, atomicTempMarker)
}

// FileManager provides file operations with standardized error handling and logging.
// Errors keep the underlying fs error in their chain, so callers can test
// errors.Is(err, fs.ErrNotExist) or fs.ErrPermission.
type FileManager struct {
	logger zerolog.Logger
}

// NewFileManager creates a new FileManager instance
func NewFileManager(logger zerolog.Logger) *FileManager {
	return &FileManager{
		logger: logger.With().Str("component", "FileManager").Logger(),
	}
}

// FileExists checks if a file or directory exists
func (fm *FileManager) FileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// GetFileInfo returns information about a file
func (fm *FileManager) GetFileInfo(path string) (*FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, WrapErrorf(err, "failed to get file info for %s", path)
	}

	return &FileInfo{
		Path:        path,
		Name:        stat.Name(),
		Size:        stat.Size(),
		IsDir:       stat.IsDir(),
		ModTime:     stat.ModTime(),
		Permissions: stat.Mode(),
	}, nil
}

// ReadFile reads a whole regular file, refusing directories and files above opts.MaxSize.
func (fm *FileManager) ReadFile(path string, opts FileReadOptions) ([]byte, error) {
	if opts.Context != nil {
		if err := opts.Context.Err(); err != nil {
			return nil, WrapError(err, "file read cancelled")
		}
	}

	info, err := fm.GetFileInfo(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir {
		return nil, NewValidationError("path", path, "is a directory, not a file")
	}
	if opts.MaxSize > 0 && info.Size > opts.MaxSize {
		return nil, WrapErrorf(ErrFileTooLarge, "%s is %d bytes, limit %d", path, info.Size, opts.MaxSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, WrapErrorf(err, "failed to open file %s", path)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fm.logger.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	var reader io.Reader = file
	if opts.MaxSize > 0 {
		// The file may have grown since Stat.
		reader = io.LimitReader(file, opts.MaxSize+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, WrapErrorf(err, "failed to read file content %s", path)
	}
	if opts.MaxSize > 0 && int64(len(content)) > opts.MaxSize {
		return nil, WrapErrorf(ErrFileTooLarge, "%s exceeds limit %d", path, opts.MaxSize)
	}

	return content, nil
}

// EnsureDirectory creates a directory and its parents if they don't exist
func (fm *FileManager) EnsureDirectory(path string, perm fs.FileMode) error {
	if fm.FileExists(path) {
		info, err := fm.GetFileInfo(path)
		if err != nil {
			return WrapError(err, "failed to check directory: "+path)
		}
		if !info.IsDir {
			return NewValidationError("path", path, "exists but is not a directory")
		}
		return nil
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return WrapError(err, "failed to create directory: "+path)
	}

	fm.logger.Debug().Str("path", path).Msg("Created directory")
	return nil
}

// WriteFileAtomic replaces path with data through a temp file and rename in the
// same directory, so readers see either the old or the new content.
// An existing file keeps its permission bits.
func (fm *FileManager) WriteFileAtomic(path string, data []byte, opts FileWriteOptions) error {
	dir := filepath.Dir(path)
	if opts.CreateDirs {
		if err := fm.EnsureDirectory(dir, 0755); err != nil {
			return WrapError(err, "failed to create parent directories for: "+path)
		}
	}

	perm := opts.Permissions
	if perm == 0 {
		perm = 0644
	}
	if stat, err := os.Stat(path); err == nil {
		perm = stat.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+atomicTempMarker+"*")
	if err != nil {
		return WrapErrorf(err, "failed to create temp file for %s", path)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		if removeErr := os.Remove(tmpName); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			fm.logger.Warn().Err(removeErr).Str("path", tmpName).Msg("Failed to remove temp file")
		}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return WrapErrorf(err, "failed to write temp file for %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return WrapErrorf(err, "failed to sync temp file for %s", path)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return WrapErrorf(err, "failed to close temp file for %s", path)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return WrapErrorf(err, "failed to set permissions on temp file for %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return WrapErrorf(err, "failed to replace %s", path)
	}

	fm.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("File written atomically")
	return nil
}
