// Package api wires the HTTP surface around the session server: health and
// wall/session introspection routes plus the /ws upgrade. There is no REST
// game-state API; clients speak the binary WebSocket protocol.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"fight-club/internal/metrics"
	"fight-club/internal/session"
	"fight-club/internal/walls"
)

// Router is the minimal HTTP surface: health check, read-only debug
// introspection, and the WebSocket upgrade.
type Router struct {
	sessions  *session.Server
	walls     *walls.Grid
	rateLimit *IPRateLimiter
}

// NewRouter constructs the router. walls may be nil before a match has
// loaded a map.
func NewRouter(sessions *session.Server, wallsGrid *walls.Grid) *Router {
	return &Router{
		sessions:  sessions,
		walls:     wallsGrid,
		rateLimit: NewIPRateLimiter(DefaultRateLimitConfig),
	}
}

// Handler builds the chi mux.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(rt.instrumentation)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   AllowedOrigins,
		AllowedMethods:   []string{"GET"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", rt.handleHealthz)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/debug/snapshot", rt.handleSnapshot)
	r.Get("/debug/walls", rt.handleWalls)

	r.With(rt.rateLimit.Middleware).Get("/ws", rt.sessions.HandleUpgrade)

	return r
}

// instrumentation wraps every request with latency/outcome metrics.
func (rt *Router) instrumentation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		metrics.RecordRequest(r.Method, r.URL.Path, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (rt *Router) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (rt *Router) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"sessions": rt.sessions.SessionCount()})
}

// handleWalls reports the wall-cell count plus how many cells have at least
// one 4-directional wall neighbor, a quick connectivity read on the loaded
// map.
func (rt *Router) handleWalls(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.walls == nil {
		json.NewEncoder(w).Encode(map[string]int{"cells": 0, "linked": 0})
		return
	}
	cells := rt.walls.WallCells()
	linked := 0
	for _, c := range cells {
		if len(rt.walls.Neighbors(c.CX, c.CY)) > 0 {
			linked++
		}
	}
	json.NewEncoder(w).Encode(map[string]int{"cells": len(cells), "linked": linked})
}
