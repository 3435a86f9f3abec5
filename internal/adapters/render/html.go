package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/mikey/phish-shield/internal/core"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
	"date": func(r Report) string { return r.Timestamp.UTC().Format("2006-01-02 15:04:05 MST") },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Phish Shield report {{.ID}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 760px; margin: 2rem auto; color: #1d1d1f; }
.score { font-size: 3rem; font-weight: 700; }
.tier { font-size: 1.4rem; font-weight: 600; }
dt { font-weight: 600; }
li.safe { color: #2da645; }
li.risky { color: #ff4444; }
.issues { color: #666; font-size: 0.9rem; }
</style>
</head>
<body>
<section id="threat-score">
  <div class="score" style="color: {{.GaugeColor}}">{{.Score}}</div>
  <div class="tier" id="threat-level" style="color: {{.TierColor}}">{{.Tier.Label}}</div>
  <p id="threat-message">{{.Tier.Description}}</p>
  <p class="issues">Analyzed {{date .}}{{if .Filename}} from {{.Filename}}{{end}}</p>
</section>
<section id="metadata">
  <dl>
    <dt>From</dt><dd id="meta-from">{{.From}}</dd>
    <dt>To</dt><dd id="meta-to">{{.To}}</dd>
    <dt>Subject</dt><dd id="meta-subject">{{.Subject}}</dd>
  </dl>
</section>
<section id="indicators">
  <h2>Threat Indicators</h2>
  <ul id="indicators-list">
  {{- range .Indicators}}
    <li{{if .Safe}} class="safe"{{end}}>{{.Text}}</li>
  {{- end}}
  </ul>
</section>
{{- if .URLs}}
<section id="urls-section">
  <h2>URLs Found</h2>
  <ul id="urls-list">
  {{- range .URLs}}
    <li title="{{.}}">{{.}}</li>
  {{- end}}
  </ul>
</section>
{{- end}}
{{- if .SuspiciousURLs}}
<section id="suspicious-urls-section">
  <h2>Suspicious URLs</h2>
  <ul id="suspicious-urls-list">
  {{- range .SuspiciousURLs}}
    <li>{{.URL}} <span class="issues">({{.Score}}) {{join .Issues "; "}}</span></li>
  {{- end}}
  </ul>
</section>
{{- end}}
{{- if .Attachments}}
<section id="attachments-section">
  <h2>Attachments</h2>
  <ul id="attachments-list">
  {{- range .Attachments}}
    <li{{if .Risky}} class="risky"{{end}}>{{.Filename}}</li>
  {{- end}}
  </ul>
</section>
{{- end}}
{{- if .Warnings}}
<section id="warnings">
  <ul>
  {{- range .Warnings}}
    <li>{{.}}</li>
  {{- end}}
  </ul>
</section>
{{- end}}
</body>
</html>
`))

// HTML writes the result as a standalone HTML report. All user-derived text is escaped.
func HTML(w io.Writer, result *core.AnalysisResult) error {
	if err := reportTemplate.Execute(w, NewReport(result)); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}
