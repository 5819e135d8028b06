package cache

import (
	"math"
	"strconv"
)

// -----------------------------------------------------------------------------
// Freshness Classification (pure functions, no clock access)
// -----------------------------------------------------------------------------

// MaxAgeCapSeconds bounds a per-request max-age override. Anything above a
// week would report records from a dead feed as "fresh".
const MaxAgeCapSeconds = 7 * 24 * 3600

// -----------------------------------------------------------------------------

// IsFresh reports whether a record received at tsMs is fresh at nowMs under
// the given cutoff. Boundary equality counts as fresh. A zero or negative
// timestamp is never fresh.
func IsFresh(tsMs int64, nowMs int64, cutoffSec int64) bool {
	if tsMs <= 0 {
		return false
	}
	return nowMs-tsMs <= cutoffSec*1000
}

// -----------------------------------------------------------------------------

// AgeSec returns the record age in seconds, rounded to 2 decimals.
func AgeSec(tsMs int64, nowMs int64) float64 {
	if tsMs <= 0 {
		return 0
	}
	return math.Round(float64(nowMs-tsMs)/1000*100) / 100
}

// -----------------------------------------------------------------------------

// ClampMaxAge parses a per-request max-age override. Empty, non-numeric or
// non-positive input falls back to the configured default; valid input is
// clamped to MaxAgeCapSeconds.
func ClampMaxAge(raw string, defaultSec int64) int64 {
	if raw == "" {
		return defaultSec
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return defaultSec
	}
	if v > MaxAgeCapSeconds {
		return MaxAgeCapSeconds
	}
	return v
}
