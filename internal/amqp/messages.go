package amqp

import (
	"encoding/json"
	"time"
)

// TransactionRecordedMessage announces a finalized ledger entry to the
// statement worker.
type TransactionRecordedMessage struct {
	TransactionID int64     `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(transactionID int64) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var m TransactionRecordedMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
