package chi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/junioryono/godix"
)

// Diagnostics returns a read-only router describing provider:
//
//	GET /               every service type and its registrations
//	GET /exclusivity    declarations plus a fresh validation run
//	GET /graph          the dependency graph in Graphviz DOT format
//
// The exclusivity endpoint answers 409 Conflict when a constraint is
// violated. Validation instantiates the exclusive services.
func Diagnostics(provider godix.Provider) http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		if provider == nil {
			http.Error(w, godix.ErrProviderNil.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, godix.DescribeServices(provider))
	})

	r.Get("/exclusivity", func(w http.ResponseWriter, req *http.Request) {
		report, err := godix.InspectExclusivity(req.Context(), provider)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		status := http.StatusOK
		if !report.Valid {
			status = http.StatusConflict
		}
		writeJSON(w, status, report)
	})

	r.Get("/graph", func(w http.ResponseWriter, _ *http.Request) {
		var b bytes.Buffer
		if err := godix.WriteDependencyGraph(&b, provider); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = b.WriteTo(w)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
