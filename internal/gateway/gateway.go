// Package gateway is the single entry point: it matches inbound paths against
// a static prefix table and forwards each request to the owning service with
// a single bounded attempt. Retry policy belongs to the client.
package gateway

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/inventory-tracker/internal/config"
	"github.com/fairyhunter13/inventory-tracker/internal/httpx"
	"github.com/fairyhunter13/inventory-tracker/internal/obs"
)

type route struct {
	prefix string
	target *url.URL
}

type Gateway struct {
	routes  []route
	client  *http.Client
	Metrics *obs.Metrics
}

// New builds the gateway from the configured upstream base URLs. The routing
// table is static: first matching prefix wins.
func New(cfg config.Config, m *obs.Metrics) (*Gateway, error) {
	product, err := url.Parse(cfg.ProductServiceURL)
	if err != nil {
		return nil, fmt.Errorf("parse product service url: %w", err)
	}
	inventory, err := url.Parse(cfg.InventoryServiceURL)
	if err != nil {
		return nil, fmt.Errorf("parse inventory service url: %w", err)
	}
	sales, err := url.Parse(cfg.SalesServiceURL)
	if err != nil {
		return nil, fmt.Errorf("parse sales service url: %w", err)
	}
	timeout := cfg.GatewayTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		routes: []route{
			{"/products", product},
			{"/inventory", inventory},
			{"/restock", inventory},
			{"/alerts", inventory},
			{"/sales", sales},
			{"/report", sales},
		},
		client:  &http.Client{Timeout: timeout},
		Metrics: m,
	}, nil
}

// NewRouter returns the gateway handler with middleware applied.
func NewRouter(g *Gateway) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpx.Health("api-gateway"))
	mux.Handle("/metrics", g.Metrics.Handler())
	mux.HandleFunc("/", g.forward)
	return httpx.Wrap(g.Metrics, mux)
}

func (g *Gateway) forward(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// CORS preflight resolves here, independent of routing.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	target := g.match(r.URL.Path)
	if target == nil {
		g.Metrics.IncError("route_not_found")
		httpx.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error":  "Endpoint not found",
			"path":   r.URL.Path,
			"method": r.Method,
		})
		return
	}

	out := *target
	out.Path = r.URL.Path
	out.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(r.Context(), r.Method, out.String(), r.Body)
	if err != nil {
		httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "Gateway error"})
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if reqID := r.Header.Get("X-Request-Id"); reqID != "" {
		req.Header.Set("X-Request-Id", reqID)
	}
	req.Header.Set("X-Forwarded-For", r.RemoteAddr)

	// Single attempt, fail fast: upstream transport failure becomes a uniform
	// 503 instead of a raw transport error.
	resp, err := g.client.Do(req)
	if err != nil {
		g.Metrics.IncError("upstream_unavailable")
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream unavailable")
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "Service unavailable",
			"details": err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (g *Gateway) match(path string) *url.URL {
	for _, rt := range g.routes {
		if len(path) >= len(rt.prefix) && path[:len(rt.prefix)] == rt.prefix {
			return rt.target
		}
	}
	return nil
}
