package amqp

import (
	"encoding/json"
	"time"
)

// Mutation actions carried on the wire. These match the action strings
// the spreadsheet endpoint understands.
const (
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// LedgerEventMessage announces that a ledger mutation was applied to the
// spreadsheet. The worker re-fetches the full ledger, so the message only
// carries enough to log and route.
type LedgerEventMessage struct {
	Action    string    `json:"action"`
	RowIndex  int64     `json:"rowIndex"`
	Item      string    `json:"item,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event message for a mutation
func NewLedgerEventMessage(action string, rowIndex int64, item string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Action:    action,
		RowIndex:  rowIndex,
		Item:      item,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
