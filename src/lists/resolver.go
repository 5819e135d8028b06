package lists

import (
	"sort"
	"strings"

	"wwasd-relay/src/cache"
)

// -----------------------------------------------------------------------------
// List Resolver
// -----------------------------------------------------------------------------

// AllList is a pseudo-list resolving to every symbol currently tracked by the
// state cache, so the desk still has data before list membership is tuned.
const AllList = "all"

// -----------------------------------------------------------------------------

// Resolver maps configured list names ("green", "full", ...) to member symbol
// sets. Membership is loaded once at startup and immutable afterwards.
// Unknown list names resolve to nothing rather than failing the request; a
// typo narrows a query instead of breaking it.
type Resolver struct {
	members map[string]map[string]struct{}
}

// -----------------------------------------------------------------------------

// NewResolver builds a resolver from config list membership. Symbols are
// normalized the same way ingestion normalizes them, so membership checks
// compare like with like.
func NewResolver(listCfg map[string][]string) *Resolver {
	members := make(map[string]map[string]struct{}, len(listCfg))
	for name, symbols := range listCfg {
		set := make(map[string]struct{}, len(symbols))
		for _, sym := range symbols {
			if norm := cache.NormalizeSymbol(sym); norm != "" {
				set[norm] = struct{}{}
			}
		}
		members[strings.ToLower(strings.TrimSpace(name))] = set
	}
	return &Resolver{members: members}
}

// -----------------------------------------------------------------------------

// Resolve returns the union of the named lists' members. The "all" pseudo-list
// is resolved by the caller against the live cache (see Engine); here it
// contributes nothing.
func (r *Resolver) Resolve(names []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, name := range names {
		set, ok := r.members[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		for sym := range set {
			out[sym] = struct{}{}
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// MembershipOf returns which configured lists contain the symbol, sorted.
func (r *Resolver) MembershipOf(symbol string) []string {
	var out []string
	for name, set := range r.members {
		if _, ok := set[symbol]; ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------

// Names returns the configured list names, sorted.
func (r *Resolver) Names() []string {
	out := make([]string, 0, len(r.members))
	for name := range r.members {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------

// Has reports whether a list name is configured.
func (r *Resolver) Has(name string) bool {
	_, ok := r.members[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
