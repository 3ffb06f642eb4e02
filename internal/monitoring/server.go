package monitoring

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHandler returns an http.Handler exposing the tabprep registry on
// /metrics and the collector summary on /summary.
func NewHandler(collector *MetricsCollector) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(collector.GetSummary()); err != nil {
			http.Error(w, "Failed to encode summary", http.StatusInternalServerError)
		}
	})
	return mux
}
