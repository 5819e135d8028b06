package cache

import "strconv"

// -----------------------------------------------------------------------------
// Tolerant payload field extraction. Producers send numbers as strings or
// floats depending on the bridge version; the relay accepts both.
// -----------------------------------------------------------------------------

func safeString(data map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		val, ok := data[key]
		if !ok {
			continue
		}
		if s, ok := val.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// -----------------------------------------------------------------------------

func safeFloat64(data map[string]interface{}, keys ...string) float64 {
	for _, key := range keys {
		val, ok := data[key]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	}
	return 0.0
}
