package amqp

import (
	"encoding/json"
	"time"
)

// Sources identify what produced a transaction-created event.
const (
	SourceManual    = "manual"
	SourceRecurring = "recurrente"
)

// TransactionCreatedMessage announces a newly inserted transaction. It
// carries only the ID and provenance; the export worker fetches the full
// row from the database before appending it to the spreadsheet.
type TransactionCreatedMessage struct {
	TransactionID int64     `json:"transaccion_id"`
	Source        string    `json:"origen"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionCreatedMessage builds a message stamped with the current time.
func NewTransactionCreatedMessage(transactionID int64, source string) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		TransactionID: transactionID,
		Source:        source,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
