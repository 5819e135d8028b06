package cache

import (
	"sync"

	"wwasd-relay/src/models"
)

// -----------------------------------------------------------------------------
// PortCache
// -----------------------------------------------------------------------------

// PortCache holds the single most recent position snapshot pushed by the
// account bridge. A push replaces the previous snapshot wholesale: the pusher
// always sends the complete open position set, so an instrument missing from
// a new push is closed, not stale. An empty position list is a valid push.
type PortCache struct {
	mu   sync.RWMutex
	snap *models.MPortSnapshot
}

// -----------------------------------------------------------------------------

func NewPortCache() *PortCache {
	return &PortCache{}
}

// -----------------------------------------------------------------------------

// Push replaces the cached snapshot.
func (c *PortCache) Push(snap models.MPortSnapshot) {
	c.mu.Lock()
	c.snap = &snap
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Latest returns a copy of the cached snapshot, or false when nothing has
// been pushed yet.
func (c *PortCache) Latest() (models.MPortSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snap == nil {
		return models.MPortSnapshot{}, false
	}

	out := *c.snap
	out.Positions = append([]models.MPositionRecord(nil), c.snap.Positions...)
	return out, true
}

// -----------------------------------------------------------------------------

// HasData reports whether any snapshot has ever been pushed or loaded.
func (c *PortCache) HasData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap != nil
}

// -----------------------------------------------------------------------------
// Position payload parsing
// -----------------------------------------------------------------------------

// ParsePositions extracts typed position records from a bridge payload.
// The bridge has shipped several shapes over time; positions may live under
// payload.data.positions, payload.data.data or payload.positions, and field
// names follow the exchange API (instId, positionSide, averagePrice...).
func ParsePositions(payload map[string]interface{}) []models.MPositionRecord {
	account := safeString(payload, "account", "accountScope", "account_scope")

	items := positionItems(payload)
	out := make([]models.MPositionRecord, 0, len(items))
	for _, item := range items {
		p, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		inst := safeString(p, "instId", "instrument", "symbol")
		if inst == "" {
			continue
		}
		out = append(out, models.MPositionRecord{
			AccountScope:  account,
			Instrument:    inst,
			Side:          safeString(p, "positionSide", "posSide", "side"),
			Size:          safeFloat64(p, "positions", "size", "positionAmt"),
			AveragePrice:  safeFloat64(p, "averagePrice", "avgPx", "average_price"),
			MarkPrice:     safeFloat64(p, "markPrice", "mark_price"),
			UnrealizedPnl: safeFloat64(p, "unrealizedPnl", "unrealized_pnl", "upl"),
			MarginRatio:   safeFloat64(p, "marginRatio", "margin_ratio"),
			Leverage:      safeFloat64(p, "leverage", "lever"),
		})
	}
	return out
}

// -----------------------------------------------------------------------------

func positionItems(payload map[string]interface{}) []interface{} {
	candidates := []interface{}{payload["positions"], payload["data"]}

	for len(candidates) > 0 {
		val := candidates[0]
		candidates = candidates[1:]

		switch v := val.(type) {
		case []interface{}:
			return v
		case map[string]interface{}:
			// positions nested one level deeper ({"data": {"positions": [...]}})
			candidates = append(candidates, v["positions"], v["data"])
		}
	}
	return nil
}
