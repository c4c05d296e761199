package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// RoutingKeyTableWritten is the routing key of TableWrittenMessage.
const RoutingKeyTableWritten = "table.written"

// TableWrittenMessage announces that a table was fully overwritten. It
// carries the new revision only; consumers read the table themselves.
type TableWrittenMessage struct {
	Table     string    `json:"table"`
	Revision  string    `json:"revision"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTableWrittenMessage(table, revision string, rows int) *TableWrittenMessage {
	return &TableWrittenMessage{
		Table:     table,
		Revision:  revision,
		Rows:      rows,
		Timestamp: time.Now().UTC(),
	}
}

func (m *TableWrittenMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TableWrittenMessageFromJSON decodes a message and rejects one without a
// table name.
func TableWrittenMessageFromJSON(data []byte) (*TableWrittenMessage, error) {
	var msg TableWrittenMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Table == "" {
		return nil, errors.New("table written message without table")
	}
	return &msg, nil
}
