package server

import "strings"

// -----------------------------------------------------------------------------

func safeString(data map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if val, ok := data[key]; ok {
			if s, ok := val.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// -----------------------------------------------------------------------------

// truthy interprets the query-string freshness toggle the way the desk sends
// it ("1", "true", "yes").
func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// -----------------------------------------------------------------------------

// splitLists parses the comma-separated lists parameter, defaulting to
// "green" when nothing usable remains.
func splitLists(raw string) []string {
	var names []string
	for _, part := range strings.Split(strings.ToLower(raw), ",") {
		if p := strings.TrimSpace(part); p != "" {
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		names = []string{"green"}
	}
	return names
}
