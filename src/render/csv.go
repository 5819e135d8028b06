package render

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"wwasd-relay/src/models"
)

// -----------------------------------------------------------------------------
// CSV Renderer
// -----------------------------------------------------------------------------

// Fixed lead columns; payload columns follow as the sorted union of the keys
// observed in this result set. The payload column set therefore varies with
// content, and consumers must not assume a stable column ordering across
// calls returning different records.
var csvLeadColumns = []string{"symbol", "event_type", "received_at", "age_sec", "is_fresh", "lists"}

// -----------------------------------------------------------------------------

// ToCSV flattens a query result into CSV. Payload sub-fields absent from a
// record are emitted as empty cells.
func ToCSV(res models.MQueryResult) ([]byte, error) {
	payloadCols := payloadColumns(res.Rows)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append(append([]string{}, csvLeadColumns...), payloadCols...)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, row := range res.Rows {
		record := []string{
			row.Symbol,
			row.EventType,
			strconv.FormatInt(row.ReceivedAt, 10),
			strconv.FormatFloat(row.AgeSec, 'f', -1, 64),
			strconv.FormatBool(row.IsFresh),
			strings.Join(row.Lists, "|"),
		}
		for _, col := range payloadCols {
			record = append(record, cellValue(row.Payload[col]))
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// -----------------------------------------------------------------------------

func payloadColumns(rows []models.MSnapshotRow) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for key := range row.Payload {
			seen[key] = struct{}{}
		}
	}

	cols := make([]string, 0, len(seen))
	for key := range seen {
		cols = append(cols, key)
	}
	sort.Strings(cols)
	return cols
}

// -----------------------------------------------------------------------------

func cellValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		// Nested structures land as compact JSON.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
