package models

import "time"

// FixErrorKind classifies why a fix attempt failed.
type FixErrorKind string

const (
	FixErrorValidation FixErrorKind = "validation"
	FixErrorAccess     FixErrorKind = "access"
	FixErrorStale      FixErrorKind = "stale"
	FixErrorInternal   FixErrorKind = "internal"
)

// FixPayload asks for one file to be replaced, provided it still matches OriginalContent.
// The content fields are pointers so that an absent field is distinguishable from an empty file.
type FixPayload struct {
	AlertID            string  `json:"alertId" validate:"required"`
	FilePath           string  `json:"filePath" validate:"required,nonul"`
	OriginalContent    *string `json:"originalContent" validate:"required"`
	ReplacementContent *string `json:"replacementContent" validate:"required"`
}

// FixResponse reports the outcome of a fix attempt.
type FixResponse struct {
	Success   bool         `json:"success"`
	FilePath  string       `json:"filePath"`
	AlertID   string       `json:"alertId"`
	Error     string       `json:"error,omitempty"`
	ErrorKind FixErrorKind `json:"errorKind,omitempty"`
}

// FixPreview describes what a fix would change without writing anything.
type FixPreview struct {
	FilePath   string `json:"filePath"`
	AlertID    string `json:"alertId"`
	Insertions int    `json:"insertions"`
	Deletions  int    `json:"deletions"`
	Patch      string `json:"patch"`
}

// FixRecord is one journaled fix attempt.
type FixRecord struct {
	ID          int64        `json:"id"`
	AlertID     string       `json:"alertId"`
	FilePath    string       `json:"filePath"`
	Success     bool         `json:"success"`
	ErrorKind   FixErrorKind `json:"errorKind,omitempty"`
	Error       string       `json:"error,omitempty"`
	BytesBefore int          `json:"bytesBefore"`
	BytesAfter  int          `json:"bytesAfter"`
	AppliedAt   time.Time    `json:"appliedAt"`
}
