package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthBody is the small JSON status document returned from
// GET /health.
type healthBody struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// NewServer builds the scrape/health HTTP server, bound to addr (e.g.
// ":9090"). Both routes are unauthenticated: scraping and liveness
// checks are infrastructure concerns, not the write path's.
func NewServer(addr, serviceName string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthBody{Status: "healthy", Service: serviceName})
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Addr renders a port number into a bind address, matching the
// configuration surface's metrics_port field.
func Addr(port int) string {
	return fmt.Sprintf(":%d", port)
}
