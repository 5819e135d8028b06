package cache

import (
	"sort"
	"sync"

	"wwasd-relay/src/models"
)

// -----------------------------------------------------------------------------
// StateCache
// -----------------------------------------------------------------------------

// StateCache holds the latest event record per (symbol, event_type) key.
// Conflict resolution is latest-wins on ReceivedAt: a put carrying an older
// or equal timestamp than the stored record is a no-op, which makes retried
// deliveries idempotent. Payloads are treated as immutable once stored.
type StateCache struct {
	mu      sync.RWMutex
	records map[string]models.MEventRecord
}

// -----------------------------------------------------------------------------

func NewStateCache() *StateCache {
	return &StateCache{
		records: make(map[string]models.MEventRecord),
	}
}

// -----------------------------------------------------------------------------

// Put stores rec iff it is newer than the current record for its key (or the
// key is unknown). Returns true when the write took effect.
func (c *StateCache) Put(rec models.MEventRecord) bool {
	key := rec.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.records[key]; ok && rec.ReceivedAt <= cur.ReceivedAt {
		return false
	}
	c.records[key] = rec
	return true
}

// -----------------------------------------------------------------------------

// Get returns the stored record for (symbol, eventType), if any.
func (c *StateCache) Get(symbol string, eventType string) (models.MEventRecord, bool) {
	rec := models.MEventRecord{Symbol: symbol, EventType: eventType}

	c.mu.RLock()
	defer c.mu.RUnlock()

	stored, ok := c.records[rec.Key()]
	return stored, ok
}

// -----------------------------------------------------------------------------

// List returns every record matching pred, ordered by (symbol, event_type)
// so consumers see a deterministic sequence. A nil pred matches everything.
func (c *StateCache) List(pred func(models.MEventRecord) bool) []models.MEventRecord {
	c.mu.RLock()
	out := make([]models.MEventRecord, 0, len(c.records))
	for _, rec := range c.records {
		if pred == nil || pred(rec) {
			out = append(out, rec)
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].EventType < out[j].EventType
	})
	return out
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of every stored record, ordered. Used by the
// durable writer to dump the full store in one pass.
func (c *StateCache) Snapshot() []models.MEventRecord {
	return c.List(nil)
}

// -----------------------------------------------------------------------------

// Load seeds the cache from a durable dump. Records go through Put so a
// reload can never regress a key that was updated while the dump loaded.
func (c *StateCache) Load(recs []models.MEventRecord) int {
	loaded := 0
	for _, rec := range recs {
		if c.Put(rec) {
			loaded++
		}
	}
	return loaded
}

// -----------------------------------------------------------------------------

// Symbols returns the distinct symbols currently tracked, unordered.
func (c *StateCache) Symbols() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]struct{}, len(c.records))
	for _, rec := range c.records {
		out[rec.Symbol] = struct{}{}
	}
	return out
}

// -----------------------------------------------------------------------------

// Count returns the number of retained records.
func (c *StateCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
