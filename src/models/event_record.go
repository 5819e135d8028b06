package models

import "fmt"

// -----------------------------------------------------------------------------
// Event Record (Latest state per symbol/event_type)
// -----------------------------------------------------------------------------

// MEventRecord is one ingested observation. Payload is kept exactly as the
// producer sent it; only Symbol and EventType are interpreted by the relay.
type MEventRecord struct {
	Symbol     string                 `json:"symbol"`
	EventType  string                 `json:"event_type"`
	ReceivedAt int64                  `json:"received_at"` // server arrival, unix ms
	Payload    map[string]interface{} `json:"payload"`
}

// -----------------------------------------------------------------------------

// Key returns the composite store key for this record.
func (r *MEventRecord) Key() string {
	return fmt.Sprintf("%s/%s", r.Symbol, r.EventType)
}
