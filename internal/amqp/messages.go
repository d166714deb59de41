package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage tells consumers that the ledger was rewritten.
// It carries no records: consumers reload the primary store.
type LedgerChangedMessage struct {
	Operation string    `json:"operation"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a message for a mutation that left count records.
func NewLedgerChangedMessage(operation string, count int) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Operation: operation,
		Count:     count,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
