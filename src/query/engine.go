package query

import (
	"time"

	"wwasd-relay/src/cache"
	"wwasd-relay/src/lists"
	"wwasd-relay/src/models"
)

// -----------------------------------------------------------------------------
// Snapshot Query Engine
// -----------------------------------------------------------------------------

// MParams are the read-side parameters every view accepts. All three output
// formats parse into this struct and run the same Query call; selection must
// never depend on the output format.
type MParams struct {
	Lists     []string
	FreshOnly bool
	MaxAgeSec int64 // 0 means the configured default
}

// -----------------------------------------------------------------------------

// Engine produces the filtered, ordered result set behind every read view.
// It never widens its own filter: a fresh-only query that matches nothing
// returns an empty result, and the caller decides whether to retry without
// the filter.
type Engine struct {
	State           *cache.StateCache
	Resolver        *lists.Resolver
	DefaultFreshSec int64

	// Now is injectable for tests; defaults to wall clock in unix ms.
	Now func() int64
}

// -----------------------------------------------------------------------------

func NewEngine(state *cache.StateCache, resolver *lists.Resolver, defaultFreshSec int64) *Engine {
	return &Engine{
		State:           state,
		Resolver:        resolver,
		DefaultFreshSec: defaultFreshSec,
		Now:             func() int64 { return time.Now().UnixMilli() },
	}
}

// -----------------------------------------------------------------------------

// Query resolves the requested lists to a symbol set, pulls matching records
// in (symbol, event_type) order and classifies each one. With FreshOnly set,
// stale rows are dropped; otherwise they are returned flagged is_fresh=false.
func (e *Engine) Query(p MParams) models.MQueryResult {
	nowMs := e.Now()

	maxAge := p.MaxAgeSec
	if maxAge <= 0 {
		maxAge = e.DefaultFreshSec
	}

	wanted := e.resolveSymbols(p.Lists)

	recs := e.State.List(func(rec models.MEventRecord) bool {
		_, ok := wanted[rec.Symbol]
		return ok
	})

	rows := make([]models.MSnapshotRow, 0, len(recs))
	for _, rec := range recs {
		fresh := cache.IsFresh(rec.ReceivedAt, nowMs, maxAge)
		if p.FreshOnly && !fresh {
			continue
		}
		rows = append(rows, models.MSnapshotRow{
			Symbol:     rec.Symbol,
			EventType:  rec.EventType,
			ReceivedAt: rec.ReceivedAt,
			AgeSec:     cache.AgeSec(rec.ReceivedAt, nowMs),
			IsFresh:    fresh,
			Lists:      e.Resolver.MembershipOf(rec.Symbol),
			Payload:    rec.Payload,
		})
	}

	return models.MQueryResult{
		GeneratedAt: nowMs,
		Count:       len(rows),
		FreshOnly:   p.FreshOnly,
		MaxAgeSec:   maxAge,
		Lists:       p.Lists,
		Rows:        rows,
	}
}

// -----------------------------------------------------------------------------

// resolveSymbols maps list names to the wanted symbol set. The "all"
// pseudo-list selects every symbol the cache has seen.
func (e *Engine) resolveSymbols(names []string) map[string]struct{} {
	for _, name := range names {
		if name == lists.AllList {
			return e.State.Symbols()
		}
	}
	return e.Resolver.Resolve(names)
}
