package internal

import (
	"bubble-relay/infrastructure/storage"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
)

//go:embed inspect.html
var templatesFS embed.FS

const defaultPrefix = "client:id:"

type PageData struct {
	Prefix string
	Limit  int
	Items  []storage.InspectRow
	Pools  []storage.ClientPool
	Error  string
}

// NewDebugHandler serves a read-only HTML view of the store: every key under
// ?prefix= and the per-client pool and mailbox depths.
func NewDebugHandler(inspector *storage.Inspector, log *slog.Logger) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /inspect", func(w http.ResponseWriter, r *http.Request) {
		data := PageData{Prefix: r.URL.Query().Get("prefix"), Limit: 500}
		if data.Prefix == "" {
			data.Prefix = defaultPrefix
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
				data.Limit = n
			}
		}

		var err error
		if data.Items, err = inspector.Scan(r.Context(), data.Prefix, data.Limit); err == nil {
			data.Pools, err = inspector.ClientPools(r.Context())
		}
		if err != nil {
			log.Warn("Inspection failed", "prefix", data.Prefix, "error", err)
			data.Error = err.Error()
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Warn("Failed to render inspector", "error", err)
		}
	})
	return mux
}
