package scanner

import (
	"path/filepath"
	"strings"
)

// defaultSkipExtensions are binary, media and archive formats no rule can
// meaningfully read.
var defaultSkipExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".webp", ".svg", ".tiff",
	".mp3", ".mp4", ".wav", ".ogg", ".avi", ".mov", ".webm",
	".woff", ".woff2", ".ttf", ".otf", ".eot",
	".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz", ".7z", ".rar", ".jar", ".war",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".exe", ".dll", ".so", ".dylib", ".bin", ".o", ".a", ".class", ".pyc", ".wasm",
	".db", ".sqlite", ".sqlite3",
	".lock", ".map", ".min.js", ".min.css",
}

var exampleConfigSuffixes = []string{".example", ".sample", ".template"}

var exampleConfigInfixes = []string{".example.", ".sample."}

// skipList decides which paths are never scanned.
type skipList struct {
	extensions []string
}

func newSkipList(extra []string) skipList {
	exts := make([]string, 0, len(defaultSkipExtensions)+len(extra))
	exts = append(exts, defaultSkipExtensions...)
	for _, ext := range extra {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return skipList{extensions: exts}
}

func (s skipList) matches(path string) bool {
	base := strings.ToLower(filepath.Base(path))

	for _, ext := range s.extensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	for _, suffix := range exampleConfigSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	for _, infix := range exampleConfigInfixes {
		if strings.Contains(base, infix) {
			return true
		}
	}
	return false
}
