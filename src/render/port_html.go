package render

import (
	"bytes"
	"html/template"

	"wwasd-relay/src/models"
)

// -----------------------------------------------------------------------------
// Port SSR Renderer
// -----------------------------------------------------------------------------

const portTemplateText = `<!doctype html>
<html><head><meta charset="utf-8"><title>WWASD Port</title>
<style>
 body{background:#0b0f14;color:#cfd8e3;font-family:system-ui,Segoe UI,Arial,sans-serif}
 table{width:100%;border-collapse:collapse;margin-top:12px}
 th,td{padding:8px 10px;border-bottom:1px solid #1b2533;text-align:left;font-size:14px}
 .pill{display:inline-block;padding:2px 8px;border-radius:12px;background:#1b2533;font-size:12px}
 .fresh{color:#7bd389}
 .stale{color:#e07a5f}
 .muted{color:#6b7280;font-size:12px}
</style></head>
<body>
<h2>WWASD Port <span class="pill {{if .Fresh}}fresh{{else}}stale{{end}}">{{if .Fresh}}fresh{{else}}stale{{end}}</span></h2>
<div class="muted">age: {{.AgeSec}}s</div>
<table>
<thead><tr><th>Instrument</th><th>Side</th><th>Sz</th><th>Avg</th><th>Mark</th><th>uPnL</th><th>Lev</th></tr></thead>
<tbody>
{{if not .Positions}}<tr><td colspan="7">No open positions</td></tr>{{end}}
{{range .Positions}}<tr>
<td>{{.Instrument}}</td><td>{{.Side}}</td><td>{{.Size}}</td><td>{{.AveragePrice}}</td><td>{{.MarkPrice}}</td><td>{{.UnrealizedPnl}}</td><td>{{.Leverage}}</td>
</tr>
{{end}}</tbody>
</table>
<div>uPnL (sum): {{.PnlSum}}</div>
</body></html>`

// -----------------------------------------------------------------------------

var portTemplate = template.Must(template.New("port").Parse(portTemplateText))

// -----------------------------------------------------------------------------

type portPageView struct {
	Fresh     bool
	AgeSec    float64
	Positions []models.MPositionRecord
	PnlSum    float64
}

// -----------------------------------------------------------------------------

// PortToHTML renders the position snapshot as a static table with a
// fresh/stale pill, mirroring the JSON envelope's classification.
func PortToHTML(snap models.MPortSnapshot, fresh bool, ageSec float64) ([]byte, error) {
	view := portPageView{
		Fresh:     fresh,
		AgeSec:    ageSec,
		Positions: snap.Positions,
	}
	for _, p := range snap.Positions {
		view.PnlSum += p.UnrealizedPnl
	}

	var buf bytes.Buffer
	if err := portTemplate.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
