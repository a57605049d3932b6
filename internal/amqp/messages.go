package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"spendwise/internal/core"
)

// Op is the kind of change a RecordChangedMessage announces.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// RecordChangedMessage announces that a recurring record changed. It only
// carries identifiers: consumers reload the record from storage and skip
// messages whose version is older than what they already mirrored.
type RecordChangedMessage struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Kind      core.RecordKind `json:"kind"`
	Op        Op              `json:"op"`
	Version   int64           `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewRecordChangedMessage(r core.RecurringRecord, op Op) *RecordChangedMessage {
	return &RecordChangedMessage{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      r.Kind,
		Op:        op,
		Version:   r.Version,
		Timestamp: time.Now(),
	}
}

func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message has no record id")
	}
	switch msg.Op {
	case OpUpsert, OpDelete:
	default:
		return nil, fmt.Errorf("unknown op %q", msg.Op)
	}
	return &msg, nil
}
