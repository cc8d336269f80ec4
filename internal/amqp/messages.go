package amqp

import (
	"encoding/json"
	"time"
)

// ExportRequestMessage asks the worker to run one spreadsheet export.
// It only carries the job ID; the worker reads the job row and the ledger
// from the database, so a lost message is recoverable by the periodic sweep.
type ExportRequestMessage struct {
	JobID       string    `json:"job_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewExportRequestMessage creates an export request for the given job row.
func NewExportRequestMessage(jobID string) *ExportRequestMessage {
	return &ExportRequestMessage{
		JobID:       jobID,
		RequestedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportRequestMessageFromJSON creates a message from JSON bytes
func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
