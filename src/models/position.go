package models

// -----------------------------------------------------------------------------
// Port (Position) Cache Structures
// -----------------------------------------------------------------------------

// MPositionRecord is one open position from the account bridge.
type MPositionRecord struct {
	AccountScope  string  `json:"account_scope"`
	Instrument    string  `json:"instrument"`
	Side          string  `json:"side"`
	Size          float64 `json:"size"`
	AveragePrice  float64 `json:"average_price"`
	MarkPrice     float64 `json:"mark_price"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	MarginRatio   float64 `json:"margin_ratio"`
	Leverage      float64 `json:"leverage"`
}

// -----------------------------------------------------------------------------

// MPortSnapshot is the complete current position set as of one push.
// A push replaces the previous snapshot wholesale: an instrument absent
// from the new push is closed, not stale.
type MPortSnapshot struct {
	PushedAt  int64                  `json:"pushed_at"` // unix ms
	Positions []MPositionRecord      `json:"positions"`
	Raw       map[string]interface{} `json:"raw"` // full payload from the pusher
}
