package models

import (
	"encoding/json"
	"fmt"
)

// MessageType names a transport message.
type MessageType string

// Outbound
const (
	MessageConnectionEstablished MessageType = "connection-established"
	MessageScanResult            MessageType = "scan-result"
	MessageFileRemoved           MessageType = "file-removed"
	MessageFixComplete           MessageType = "fix-complete"
	MessageFixError              MessageType = "fix-error"
	MessageFixPreview            MessageType = "fix-preview"
)

// Inbound
const (
	MessageFixApply    MessageType = "fix-apply"
	MessageFixValidate MessageType = "fix-validate"
)

// Envelope is the JSON frame exchanged with UI clients.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConnectionInfo is the payload of connection-established.
type ConnectionInfo struct {
	WatchDir string `json:"watchDir"`
}

// FileRemoved is the payload of file-removed.
type FileRemoved struct {
	FilePath string `json:"filePath"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(msgType MessageType, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}
