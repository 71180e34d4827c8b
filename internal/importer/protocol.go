package importer

import (
	"encoding/json"
	"fmt"

	"github.com/bookwith/reader-core/internal/domain"
)

// MessageType tags every message exchanged with a pipeline run.
type MessageType string

// Outbound message types, from a run to its coordinator.
const (
	MsgWorkerReady   MessageType = "workerReady"
	MsgStart         MessageType = "start"
	MsgFileProgress  MessageType = "fileProgress"
	MsgUpdateOverall MessageType = "updateOverall"
	MsgError         MessageType = "error"
	MsgComplete      MessageType = "complete"
	MsgFatalError    MessageType = "fatalError"
)

// ProtocolVersion is bumped whenever a payload changes incompatibly.
const ProtocolVersion = 1

// Message is one tagged record. RunID correlates messages with the request
// that produced them; workerReady carries none.
type Message struct {
	Version int             `json:"v"`
	Type    MessageType     `json:"type"`
	RunID   string          `json:"run_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StartPayload opens a run over Total files.
type StartPayload struct {
	Total int `json:"total"`
}

// FileProgressPayload reports progress (0-100) within the file at Index.
type FileProgressPayload struct {
	Name     string `json:"name"`
	Progress int    `json:"progress"`
	Index    int    `json:"index"`
}

// OverallPayload is sent after each file finishes.
type OverallPayload struct {
	Completed int `json:"completed"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
}

// ErrorPayload reports a non-fatal, per-file failure.
type ErrorPayload struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// CompletePayload is always the last message of a run. Added holds the
// books created during the run.
type CompletePayload struct {
	Total   int           `json:"total"`
	Success int           `json:"success"`
	Failed  int           `json:"failed"`
	Added   []domain.Book `json:"added,omitempty"`
}

// FatalPayload reports that the run itself crashed.
type FatalPayload struct {
	Message string `json:"message"`
}

// File is one candidate for import.
type File struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// RunRequest is the only inbound message: it triggers one run.
type RunRequest struct {
	Version int    `json:"v"`
	RunID   string `json:"run_id"`
	Files   []File `json:"files"`
}

// NewMessage builds a message with its payload serialized.
func NewMessage(t MessageType, runID string, payload interface{}) (Message, error) {
	msg := Message{Version: ProtocolVersion, Type: t, RunID: runID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("failed to encode %s payload: %w", t, err)
		}
		msg.Payload = raw
	}
	return msg, nil
}

// DecodePayload unmarshals the payload into v.
func (m Message) DecodePayload(v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	return json.Unmarshal(m.Payload, v)
}

// Terminal reports whether no further messages belong to the run.
func (m Message) Terminal() bool {
	return m.Type == MsgComplete
}

// EncodeMessage serializes a message for the worker boundary.
func EncodeMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses a message received across the worker boundary.
func DecodeMessage(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	if m.Version != ProtocolVersion {
		return Message{}, fmt.Errorf("unsupported protocol version %d", m.Version)
	}
	return m, nil
}
