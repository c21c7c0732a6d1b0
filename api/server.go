/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Metrics:    Request count and latency per route (when enabled)

ROUTE GROUPS:
  /api/state/*          Attendance state and simulated dates
  /api/holidays/*       Holiday index queries
  /api/scenarios/*      Demo scenarios
  /api/...              Derived views (occurrences, describe, timeline)
  /metrics              Prometheus scrape endpoint (when enabled)
  /*                    Static files (frontend)

STATIC FILE SERVING:
  Serves a built frontend from web/dist/ when present, falling back to
  index.html for client-side routing.

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds the router settings that come from configuration.
type RouterConfig struct {
	AllowedOrigins []string
	MetricsPath    string // "" disables the scrape endpoint
	StaticDir      string // "" = ./web/dist
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/state", func(r chi.Router) {
			r.Get("/", h.GetState)
			r.Put("/warnings", h.SetWarnings)
			r.Put("/extra-callouts", h.SetExtraCallouts)
			r.Put("/oldest-warning-expires", h.SetOldestWarningExpires)
			r.Get("/simulations", h.ListSimulations)
			r.Post("/simulations", h.AddSimulation)
			r.Delete("/simulations/{date}", h.RemoveSimulation)
		})

		r.Get("/occurrences", h.GetOccurrences)
		r.Get("/policy", h.GetPolicy)
		r.Get("/describe/{date}", h.DescribeDate)
		r.Get("/timeline", h.GetTimeline)

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Get("/upcoming", h.UpcomingHolidays)
			r.Get("/{date}", h.MatchHoliday)
		})

		r.Get("/theme", h.GetTheme)
		r.Put("/theme", h.SetTheme)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	if h.Metrics != nil && cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, h.Metrics.Handler())
	}

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = "./web/dist"
	}
	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, r.URL.Path)

			// SPA routing: unknown paths serve index.html
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Attendance Risk Estimator</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Attendance Risk Estimator API</h1>
<p>No frontend build found.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/state">/api/state</a> - Current state and occurrences</li>
<li><a href="/api/timeline">/api/timeline</a> - One-year timeline</li>
<li><a href="/api/holidays">/api/holidays</a> - Holiday list</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
