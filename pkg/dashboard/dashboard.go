// Package dashboard serves a read-only HTML view of the compiled catalog
// and its diagnostics, for operators checking what a rollout produced.
package dashboard

import (
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/toolgate/toolgate/pkg/catalog"
)

var pageTemplate = template.Must(template.New("catalog").Parse(`<!DOCTYPE html>
<html>
<head>
<title>toolgate catalog</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
th { background: #f0f0f0; }
.disabled { color: #999; }
.sev-ERR { color: #c00; }
.sev-WARN { color: #a60; }
.sev-INFO { color: #06c; }
</style>
</head>
<body>
<h1>toolgate catalog</h1>
<p>{{.ToolCount}} tools compiled, rendered at {{.RenderedAt.Format "2006-01-02 15:04:05 MST"}}</p>
<table>
<tr><th>Tool</th><th>Service</th><th>Method</th><th>Path</th><th>Size</th><th>Status</th><th>Diagnostics</th></tr>
{{range .Tools}}
<tr{{if .Disabled}} class="disabled"{{end}}>
<td>{{.Name}}</td>
<td>{{.Service}}</td>
<td>{{.Method}}</td>
<td>{{.Path}}</td>
<td>{{.Size}}</td>
<td>{{if .Disabled}}disabled{{else}}active{{end}}</td>
<td>
{{range .Logs}}<div class="sev-{{.Severity}}">{{.Severity}}: {{.Message}}</div>{{end}}
</td>
</tr>
{{end}}
</table>
</body>
</html>
`))

type pageData struct {
	ToolCount  int
	RenderedAt time.Time
	Tools      []*toolRow
}

type toolRow struct {
	Name     string
	Service  string
	Method   string
	Path     string
	Size     int
	Disabled bool
	Logs     []logRow
}

type logRow struct {
	Severity string
	Message  string
}

// Handler renders the catalog page.
func Handler(cat *catalog.Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := pageData{
			ToolCount:  cat.Len(),
			RenderedAt: time.Now(),
		}
		for _, tool := range cat.Tools {
			row := &toolRow{
				Name:     tool.Name,
				Service:  tool.Service,
				Method:   tool.Method,
				Path:     tool.Path,
				Size:     tool.Size,
				Disabled: tool.Disabled,
			}
			for _, entry := range tool.Logs {
				row.Logs = append(row.Logs, logRow{
					Severity: string(entry.Severity),
					Message:  entry.Message,
				})
			}
			data.Tools = append(data.Tools, row)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTemplate.Execute(w, data); err != nil {
			logger.Error("render catalog page", zap.Error(err))
		}
	}
}

// Health is a liveness endpoint.
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
