package events

import (
	"encoding/json"
	"time"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ChangeMessage announces that one record in an owner's partition changed.
// It carries identifiers only; consumers that need field values read them
// from the store.
type ChangeMessage struct {
	OwnerID   string    `json:"ownerId"`
	RecordID  string    `json:"recordId"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage creates a change message stamped with the current time.
func NewChangeMessage(ownerID, recordID, action string) *ChangeMessage {
	return &ChangeMessage{
		OwnerID:   ownerID,
		RecordID:  recordID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
