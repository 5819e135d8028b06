package render

import (
	"bytes"
	"encoding/json"
	"html/template"
	"strings"

	"wwasd-relay/src/models"
)

// -----------------------------------------------------------------------------
// HTML Renderer (server-side only, no scripting)
// -----------------------------------------------------------------------------

// Built for the lowest-capability consumers: bots and desk tooling that can
// only read response-body text. Everything is rendered on the server; the
// page contains no JavaScript.

const stateTemplateText = `<!doctype html>
<html><head><meta charset="utf-8"><title>WWASD State</title>
<style>
 body{background:#0b0f14;color:#cfd8e3;font-family:system-ui,Segoe UI,Arial,sans-serif}
 table{width:100%;border-collapse:collapse;margin-top:12px}
 th,td{padding:8px 10px;border-bottom:1px solid #1b2533;text-align:left;font-size:14px}
 .pill{display:inline-block;padding:2px 8px;border-radius:12px;background:#1b2533;font-size:12px}
 .fresh{color:#7bd389}
 .stale{color:#e07a5f}
 .muted{color:#6b7280;font-size:12px}
 code{background:#1b2533;padding:2px 6px;border-radius:4px;font-size:12px}
</style></head>
<body>
<h2>WWASD State <span class="pill">{{.Count}} records</span></h2>
<div class="muted">generated {{.GeneratedAt}} &middot; lists: {{.ListsLabel}} &middot; fresh_only: {{.FreshOnly}} &middot; max_age: {{.MaxAgeSec}}s</div>
<table>
<thead><tr><th>Symbol</th><th>Type</th><th>Age (s)</th><th>Fresh</th><th>Lists</th><th>Payload</th></tr></thead>
<tbody>
{{if not .Rows}}<tr><td colspan="6">No records</td></tr>{{end}}
{{range .Rows}}<tr>
<td>{{.Symbol}}</td>
<td>{{.EventType}}</td>
<td>{{.AgeSec}}</td>
<td><span class="pill {{if .IsFresh}}fresh{{else}}stale{{end}}">{{if .IsFresh}}fresh{{else}}stale{{end}}</span></td>
<td>{{.ListsLabel}}</td>
<td><code>{{.PayloadJSON}}</code></td>
</tr>
{{end}}</tbody>
</table>
</body></html>`

// -----------------------------------------------------------------------------

var stateTemplate = template.Must(template.New("state").Parse(stateTemplateText))

// -----------------------------------------------------------------------------

type stateRowView struct {
	Symbol      string
	EventType   string
	AgeSec      float64
	IsFresh     bool
	ListsLabel  string
	PayloadJSON string
}

type statePageView struct {
	GeneratedAt int64
	Count       int
	FreshOnly   bool
	MaxAgeSec   int64
	ListsLabel  string
	Rows        []stateRowView
}

// -----------------------------------------------------------------------------

// ToHTML renders a query result as a static table. Selection must be
// identical to the JSON and CSV renderings of the same result.
func ToHTML(res models.MQueryResult) ([]byte, error) {
	view := statePageView{
		GeneratedAt: res.GeneratedAt,
		Count:       res.Count,
		FreshOnly:   res.FreshOnly,
		MaxAgeSec:   res.MaxAgeSec,
		ListsLabel:  strings.Join(res.Lists, ","),
		Rows:        make([]stateRowView, 0, len(res.Rows)),
	}

	for _, row := range res.Rows {
		payload, err := json.Marshal(row.Payload)
		if err != nil {
			payload = []byte("{}")
		}
		view.Rows = append(view.Rows, stateRowView{
			Symbol:      row.Symbol,
			EventType:   row.EventType,
			AgeSec:      row.AgeSec,
			IsFresh:     row.IsFresh,
			ListsLabel:  strings.Join(row.Lists, ","),
			PayloadJSON: string(payload),
		})
	}

	var buf bytes.Buffer
	if err := stateTemplate.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
