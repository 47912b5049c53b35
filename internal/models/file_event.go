package models

import "time"

// ChangeKind is the kind of filesystem notification for a path.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeChanged ChangeKind = "changed"
	ChangeRemoved ChangeKind = "removed"
)

// IsValid reports whether k is a known change kind.
func (k ChangeKind) IsValid() bool {
	switch k {
	case ChangeAdded, ChangeChanged, ChangeRemoved:
		return true
	default:
		return false
	}
}

// FileEvent is a debounced, content-attached change for one path.
// Content is empty for ChangeRemoved.
type FileEvent struct {
	Kind       ChangeKind `json:"kind"`
	Path       string     `json:"path"`
	Content    string     `json:"content,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}
