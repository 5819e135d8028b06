package models

// -----------------------------------------------------------------------------
// Query Result Structures (shared by every renderer)
// -----------------------------------------------------------------------------

// MSnapshotRow is one record as seen by the read side: the stored event plus
// classification computed at query time.
type MSnapshotRow struct {
	Symbol     string                 `json:"symbol"`
	EventType  string                 `json:"event_type"`
	ReceivedAt int64                  `json:"received_at"`
	AgeSec     float64                `json:"age_sec"`
	IsFresh    bool                   `json:"is_fresh"`
	Lists      []string               `json:"lists"`
	Payload    map[string]interface{} `json:"payload"`
}

// -----------------------------------------------------------------------------

// MQueryResult is the single intermediate type every output format renders.
// JSON, CSV and HTML views of the same parameters must all be built from the
// same MQueryResult instance.
type MQueryResult struct {
	GeneratedAt int64          `json:"ts"` // unix ms
	Count       int            `json:"count"`
	FreshOnly   bool           `json:"fresh_only"`
	MaxAgeSec   int64          `json:"max_age_sec"`
	Lists       []string       `json:"lists"`
	Rows        []MSnapshotRow `json:"rows"`
}
