package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wwasd-relay/src/cache"
	"wwasd-relay/src/lists"
	"wwasd-relay/src/logger"
	"wwasd-relay/src/models"
	"wwasd-relay/src/query"
	"wwasd-relay/src/storage"
)

// -----------------------------------------------------------------------------

const testSecret = "test-secret"

// newTestServer assembles the stack in memory-only mode with a stepping
// clock, so consecutive ingests always carry strictly increasing timestamps.
func newTestServer(t *testing.T) *RelayServer {
	t.Helper()

	cfg := &models.MConfig{
		Name:              "relay-test",
		Host:              "127.0.0.1",
		Port:              8787,
		LogLevel:          "ERROR",
		AuthSharedSecret:  testSecret,
		StateFreshSeconds: 5400,
		PortFreshSeconds:  600,
		Lists: map[string][]string{
			"green": {"BTCUSDT", "ETHUSDT"},
		},
	}

	log := logger.NewLogger(cfg.LogLevel, cfg.Name)
	state := cache.NewStateCache()
	port := cache.NewPortCache()
	resolver := lists.NewResolver(cfg.Lists)
	qe := query.NewEngine(state, resolver, cfg.StateFreshSeconds)
	writer := storage.NewDumpWriter(nil, state, port, log)

	srv := NewRelayServer(cfg, log, state, port, qe, writer)

	clock := int64(100_000_000)
	srv.Now = func() int64 {
		clock += 1000
		return clock
	}
	qe.Now = func() int64 { return clock }

	return srv
}

// -----------------------------------------------------------------------------

func do(srv *RelayServer, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func postEvent(srv *RelayServer, payload map[string]interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	return do(srv, http.MethodPost, "/tv?token="+testSecret, body, "application/json")
}

// -----------------------------------------------------------------------------

func TestIngestRejectsBadToken(t *testing.T) {
	srv := newTestServer(t)

	body := []byte(`{"type":"WWASD_STATE","symbol":"BTCUSDT"}`)
	w := do(srv, http.MethodPost, "/tv?token=wrong", body, "application/json")
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if srv.State.Count() != 0 {
		t.Error("rejected request must not mutate the store")
	}
}

// -----------------------------------------------------------------------------

func TestIngestRejectsInvalidJSON(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv, http.MethodPost, "/tv?token="+testSecret, []byte("not json"), "application/json")
	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

// -----------------------------------------------------------------------------

func TestIngestRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t)

	if w := postEvent(srv, map[string]interface{}{"symbol": "BTCUSDT"}); w.Code != 400 {
		t.Errorf("missing type: expected 400, got %d", w.Code)
	}
	if w := postEvent(srv, map[string]interface{}{"type": "WWASD_STATE"}); w.Code != 400 {
		t.Errorf("missing symbol: expected 400, got %d", w.Code)
	}
	if srv.State.Count() != 0 {
		t.Error("malformed payloads must not be stored")
	}
}

// -----------------------------------------------------------------------------

func TestIngestStateAndQueryViews(t *testing.T) {
	srv := newTestServer(t)

	w := postEvent(srv, map[string]interface{}{
		"type":   "WWASD_STATE",
		"symbol": "BTCUSDT.P",
		"bias":   "long",
	})
	if w.Code != 200 {
		t.Fatalf("ingest failed: %d %s", w.Code, w.Body.String())
	}

	var ack map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("ack does not decode: %v", err)
	}
	if ack["key"] != "BTCUSDT/WWASD_STATE" {
		t.Errorf("ack key = %v", ack["key"])
	}

	// All three formats see the same record.
	for _, target := range []string{
		"/tv/latest.json?lists=green",
		"/tv/latest.csv?lists=green",
		"/tv/latest.html?lists=green",
	} {
		resp := do(srv, http.MethodGet, target, nil, "")
		if resp.Code != 200 {
			t.Fatalf("%s: status %d", target, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "BTCUSDT") {
			t.Errorf("%s: body missing BTCUSDT", target)
		}
	}
}

// -----------------------------------------------------------------------------

func TestIngestNormalizationCollapsesKeys(t *testing.T) {
	srv := newTestServer(t)

	postEvent(srv, map[string]interface{}{"type": "WWASD_STATE", "symbol": "BTCUSDT.P"})
	postEvent(srv, map[string]interface{}{"type": "WWASD_STATE", "symbol": "BTCUSDT"})

	if srv.State.Count() != 1 {
		t.Fatalf("expected 1 record for normalized key, got %d", srv.State.Count())
	}

	stored, ok := srv.State.Get("BTCUSDT", "WWASD_STATE")
	if !ok {
		t.Fatal("normalized record missing")
	}
	// The second (later) delivery wins.
	if stored.Payload["symbol"] != "BTCUSDT" {
		t.Errorf("expected the later delivery to win, payload symbol = %v", stored.Payload["symbol"])
	}
}

// -----------------------------------------------------------------------------

func TestIngestMultipartForm(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("payload", `{"type":"WWASD_STATE","symbol":"ETHUSDT","bias":"short"}`)
	mw.Close()

	w := do(srv, http.MethodPost, "/tv?token="+testSecret, buf.Bytes(), mw.FormDataContentType())
	if w.Code != 200 {
		t.Fatalf("multipart ingest failed: %d %s", w.Code, w.Body.String())
	}
	if _, ok := srv.State.Get("ETHUSDT", "WWASD_STATE"); !ok {
		t.Error("multipart event not stored")
	}
}

// -----------------------------------------------------------------------------

func TestUnknownListNarrowsToEmpty(t *testing.T) {
	srv := newTestServer(t)
	postEvent(srv, map[string]interface{}{"type": "WWASD_STATE", "symbol": "BTCUSDT"})

	w := do(srv, http.MethodGet, "/tv/latest.json?lists=unknown_list_name&fresh_only=0", nil, "")
	if w.Code != 200 {
		t.Fatalf("unknown list must not fail the request: %d", w.Code)
	}

	var res models.MQueryResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("body does not decode: %v", err)
	}
	if res.Count != 0 || len(res.Rows) != 0 {
		t.Errorf("expected zero rows, got %d", res.Count)
	}
}

// -----------------------------------------------------------------------------

func TestPortFullReplacement(t *testing.T) {
	srv := newTestServer(t)

	postEvent(srv, map[string]interface{}{
		"type": "BLOFIN_POSITIONS",
		"data": map[string]interface{}{
			"positions": []interface{}{
				map[string]interface{}{"instId": "ETH-USDT", "positionSide": "long", "positions": "2"},
			},
		},
	})

	// Second push with no positions: the book is now empty, not stale.
	postEvent(srv, map[string]interface{}{
		"type": "BLOFIN_POSITIONS",
		"data": map[string]interface{}{"positions": []interface{}{}},
	})

	w := do(srv, http.MethodGet, "/blofin/latest", nil, "")
	if w.Code != 200 {
		t.Fatalf("/blofin/latest: %d", w.Code)
	}

	var env struct {
		Fresh     bool                     `json:"fresh"`
		Positions []models.MPositionRecord `json:"positions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("envelope does not decode: %v", err)
	}
	if !env.Fresh {
		t.Error("snapshot pushed moments ago should be fresh")
	}
	if len(env.Positions) != 0 {
		t.Errorf("expected zero open positions after empty push, got %d", len(env.Positions))
	}
}

// -----------------------------------------------------------------------------

func TestPortLatestNever500(t *testing.T) {
	srv := newTestServer(t)

	// Before any push the envelope still renders, flagged stale.
	w := do(srv, http.MethodGet, "/blofin/latest", nil, "")
	if w.Code != 200 {
		t.Fatalf("empty port read must not fail: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"fresh":false`) {
		t.Errorf("expected fresh=false envelope, got %s", w.Body.String())
	}

	if w := do(srv, http.MethodGet, "/port2_ssr.html", nil, ""); w.Code != 200 {
		t.Fatalf("empty port SSR must not fail: %d", w.Code)
	}
}

// -----------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	postEvent(srv, map[string]interface{}{"type": "WWASD_STATE", "symbol": "BTCUSDT"})

	w := do(srv, http.MethodGet, "/health", nil, "")
	if w.Code != 200 {
		t.Fatalf("/health: %d", w.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("health does not decode: %v", err)
	}
	if health["ok"] != true {
		t.Error("health ok flag missing")
	}
	if fmt.Sprintf("%v", health["state_count"]) != "1" {
		t.Errorf("state_count = %v", health["state_count"])
	}
	if health["port_cached"] != false {
		t.Errorf("port_cached = %v", health["port_cached"])
	}
}

// -----------------------------------------------------------------------------

func TestStaleRecordVisibleWithoutFreshFilter(t *testing.T) {
	srv := newTestServer(t)
	postEvent(srv, map[string]interface{}{"type": "WWASD_STATE", "symbol": "BTCUSDT"})

	// Jump the read clock one second past the cutoff.
	base := srv.Now()
	srv.Query.Now = func() int64 { return base + 5400*1000 + 1 }

	fresh := do(srv, http.MethodGet, "/tv/latest.json?lists=green&fresh_only=1", nil, "")
	var res models.MQueryResult
	json.Unmarshal(fresh.Body.Bytes(), &res)
	if res.Count != 0 {
		t.Fatalf("fresh-only view should be empty, got %d rows", res.Count)
	}

	all := do(srv, http.MethodGet, "/tv/latest.json?lists=green&fresh_only=0", nil, "")
	json.Unmarshal(all.Body.Bytes(), &res)
	if res.Count != 1 {
		t.Fatalf("unfiltered view should return the stale record, got %d rows", res.Count)
	}
	if res.Rows[0].IsFresh {
		t.Error("record past cutoff must be flagged is_fresh=false")
	}
}

// -----------------------------------------------------------------------------

func TestStopShutsDownHubCleanly(t *testing.T) {
	srv := newTestServer(t)
	go srv.handleWebsockets()

	client := &Client{hub: srv, send: make(chan *models.MSnapshotRow, 8)}
	srv.register <- client

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// The hub closes every subscriber channel on the way out.
	deadline := time.After(time.Second)
	closed := false
	for !closed {
		select {
		case _, ok := <-client.send:
			closed = !ok
		case <-deadline:
			t.Fatal("subscriber channel not closed after Stop")
		}
	}

	// Late traffic after shutdown must be a silent no-op, never a panic.
	srv.broadcastRecord(models.MEventRecord{
		Symbol:     "BTCUSDT",
		EventType:  "WWASD_STATE",
		ReceivedAt: srv.Now(),
		Payload:    map[string]interface{}{},
	})
	if err := srv.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

// -----------------------------------------------------------------------------

func TestShutdownSequenceFlushesDurableState(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "relay.db")

	cfg := &models.MConfig{
		Name:              "relay-test",
		Host:              "127.0.0.1",
		Port:              8787,
		LogLevel:          "ERROR",
		AuthSharedSecret:  testSecret,
		StateFreshSeconds: 5400,
		PortFreshSeconds:  600,
		Lists:             map[string][]string{"green": {"BTCUSDT"}},
		Storage:           models.MStorageConfig{DBType: "sqlite", DBPath: dbPath},
	}

	log := logger.NewLogger(cfg.LogLevel, cfg.Name)
	store, err := storage.NewSQLiteStore(cfg, log)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	state := cache.NewStateCache()
	port := cache.NewPortCache()
	resolver := lists.NewResolver(cfg.Lists)
	qe := query.NewEngine(state, resolver, cfg.StateFreshSeconds)
	writer := storage.NewDumpWriter(store, state, port, log)
	writer.Start()

	srv := NewRelayServer(cfg, log, state, port, qe, writer)
	go srv.handleWebsockets()

	w := postEvent(srv, map[string]interface{}{"type": "WWASD_STATE", "symbol": "BTCUSDT", "bias": "long"})
	if w.Code != 200 {
		t.Fatalf("ingest: %d %s", w.Code, w.Body.String())
	}

	// Same teardown order the process uses: server first, then the writer's
	// final flush, then the store.
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	writer.Stop()
	store.Close()

	verify, err := storage.NewSQLiteStore(cfg, log)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := verify.Initialize(); err != nil {
		t.Fatalf("reopen Initialize: %v", err)
	}
	defer verify.Close()

	recs, err := verify.LoadStateDump()
	if err != nil {
		t.Fatalf("LoadStateDump: %v", err)
	}
	if len(recs) != 1 || recs[0].Symbol != "BTCUSDT" {
		t.Fatalf("expected the ingested record in the durable dump, got %+v", recs)
	}
}
