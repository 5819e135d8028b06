package render

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"wwasd-relay/src/models"
)

// -----------------------------------------------------------------------------

func testResult() models.MQueryResult {
	return models.MQueryResult{
		GeneratedAt: 100_000_000,
		Count:       2,
		FreshOnly:   false,
		MaxAgeSec:   5400,
		Lists:       []string{"green"},
		Rows: []models.MSnapshotRow{
			{
				Symbol:     "BTCUSDT",
				EventType:  "STATE",
				ReceivedAt: 99_990_000,
				AgeSec:     10,
				IsFresh:    true,
				Lists:      []string{"green"},
				Payload:    map[string]interface{}{"bias": "long", "score": 7.5},
			},
			{
				Symbol:     "ETHUSDT",
				EventType:  "STATE",
				ReceivedAt: 90_000_000,
				AgeSec:     10000,
				IsFresh:    false,
				Lists:      []string{"green"},
				Payload:    map[string]interface{}{"bias": "short"},
			},
		},
	}
}

// -----------------------------------------------------------------------------

// All three formats must contain the same symbols with the same freshness
// classification; divergence between formats is a correctness bug.
func TestFormatsAgreeOnSelectionAndFreshness(t *testing.T) {
	res := testResult()

	jsonBody, err := ToJSON(res)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	csvBody, err := ToCSV(res)
	if err != nil {
		t.Fatalf("ToCSV: %v", err)
	}
	htmlBody, err := ToHTML(res)
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}

	var decoded models.MQueryResult
	if err := json.Unmarshal(jsonBody, &decoded); err != nil {
		t.Fatalf("JSON body does not decode: %v", err)
	}
	if decoded.Count != 2 || len(decoded.Rows) != 2 {
		t.Fatalf("JSON row count wrong: %+v", decoded)
	}

	for _, row := range res.Rows {
		if !strings.Contains(string(csvBody), row.Symbol) {
			t.Errorf("CSV missing symbol %s", row.Symbol)
		}
		if !strings.Contains(string(htmlBody), row.Symbol) {
			t.Errorf("HTML missing symbol %s", row.Symbol)
		}
	}

	// Freshness flags agree per symbol across formats.
	for i, row := range decoded.Rows {
		if row.IsFresh != res.Rows[i].IsFresh {
			t.Errorf("JSON freshness diverged for %s", row.Symbol)
		}
	}
	csvRows := parseCSV(t, csvBody)
	if csvRows[0]["is_fresh"] != "true" || csvRows[1]["is_fresh"] != "false" {
		t.Errorf("CSV freshness diverged: %+v", csvRows)
	}
	if !strings.Contains(string(htmlBody), ">fresh<") || !strings.Contains(string(htmlBody), ">stale<") {
		t.Error("HTML should render one fresh and one stale pill")
	}
}

// -----------------------------------------------------------------------------

func TestCSVPayloadColumnUnion(t *testing.T) {
	res := testResult()
	body, err := ToCSV(res)
	if err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	rows := parseCSV(t, body)
	if rows[0]["score"] != "7.5" {
		t.Errorf("BTCUSDT score cell = %q", rows[0]["score"])
	}
	// ETHUSDT has no score field: empty cell, not a missing column.
	if rows[1]["score"] != "" {
		t.Errorf("absent payload field should be an empty cell, got %q", rows[1]["score"])
	}
	if rows[0]["bias"] != "long" || rows[1]["bias"] != "short" {
		t.Errorf("bias cells wrong: %+v", rows)
	}
}

// -----------------------------------------------------------------------------

func TestHTMLEmptyResult(t *testing.T) {
	res := models.MQueryResult{GeneratedAt: 1, Lists: []string{"green"}}
	body, err := ToHTML(res)
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	if !strings.Contains(string(body), "No records") {
		t.Error("empty result should render the placeholder row")
	}
	if strings.Contains(string(body), "<script") {
		t.Error("state view must not contain scripting")
	}
}

// -----------------------------------------------------------------------------

func TestPortHTML(t *testing.T) {
	snap := models.MPortSnapshot{
		PushedAt: 1000,
		Positions: []models.MPositionRecord{
			{Instrument: "ETH-USDT", Side: "long", Size: 2, UnrealizedPnl: 12.5},
			{Instrument: "BTC-USDT", Side: "short", Size: 1, UnrealizedPnl: -2.5},
		},
	}

	body, err := PortToHTML(snap, true, 30)
	if err != nil {
		t.Fatalf("PortToHTML: %v", err)
	}
	html := string(body)

	for _, want := range []string{"ETH-USDT", "BTC-USDT", "uPnL (sum): 10", ">fresh<"} {
		if !strings.Contains(html, want) {
			t.Errorf("port HTML missing %q", want)
		}
	}

	empty, err := PortToHTML(models.MPortSnapshot{}, false, 0)
	if err != nil {
		t.Fatalf("PortToHTML empty: %v", err)
	}
	if !strings.Contains(string(empty), "No open positions") {
		t.Error("empty snapshot should render the placeholder row")
	}
	if !strings.Contains(string(empty), ">stale<") {
		t.Error("stale snapshot should render the stale pill")
	}
}

// -----------------------------------------------------------------------------

func parseCSV(t *testing.T, body []byte) []map[string]string {
	t.Helper()

	records, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	if err != nil {
		t.Fatalf("CSV body does not parse: %v", err)
	}
	if len(records) < 1 {
		t.Fatal("CSV body has no header")
	}

	header := records[0]
	var out []map[string]string
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = record[i]
		}
		out = append(out, row)
	}
	return out
}
