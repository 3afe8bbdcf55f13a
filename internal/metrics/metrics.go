// Package metrics exposes the server's Prometheus instrumentation: tick
// timing, session counts, and the bounded error taxonomy (bad packets,
// strategy faults, IO faults, buffer overflows).
package metrics

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-session labels, to avoid DoS via
// label explosion).
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in one Manager.Update call",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
	})

	broadcastDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_broadcast_duration_seconds",
		Help:    "Time spent packing and fanning out one broadcast pass",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_sessions_active",
		Help: "Currently connected sessions",
	})

	agentsAlive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_agents_alive",
		Help: "Agents currently alive in the running match",
	})

	matchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_matches_started_total",
		Help: "Matches that reached START_GAME",
	})

	matchesEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_matches_ended_total",
		Help: "Matches that ended, labeled by cause",
	}, []string{"cause"}) // "win", "disconnect"

	badPacketTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_bad_packet_total",
		Help: "Client frames dropped as BadPacket",
	})

	strategyFaultTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_strategy_fault_total",
		Help: "Strategy.Step panics recovered at the manager boundary",
	})

	bufferOverflowTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_buffer_overflow_total",
		Help: "Snapshot packs skipped for exceeding 65535 records",
	})

	ioFaultTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_io_fault_total",
		Help: "Session socket send/recv failures",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_connection_rejected_total",
		Help: "Connections rejected before upgrade, labeled by reason",
	}, []string{"reason"}) // "http_rate_limit", "origin", "ws_ip_limit", "ws_total_limit"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arena_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})
)

// DebugServerConfig configures the localhost-only pprof/metrics/health
// server. It never binds externally without an explicit override.
type DebugServerConfig struct {
	Enabled    bool
	ListenAddr string // forced to 127.0.0.1 unless ALLOW_DEBUG_EXTERNAL=true
}

// DefaultDebugServerConfig returns safe defaults.
func DefaultDebugServerConfig() DebugServerConfig {
	return DebugServerConfig{Enabled: true, ListenAddr: "127.0.0.1:6060"}
}

// StartDebugServer starts the internal pprof/metrics/health server.
func StartDebugServer(cfg DebugServerConfig) error {
	if !cfg.Enabled {
		log.Println("metrics: debug server disabled")
		return nil
	}

	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("metrics: debug server forced to localhost")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go func() {
		log.Printf("metrics: debug server on %s", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			log.Printf("metrics: debug server error: %v", err)
		}
	}()

	return nil
}

// RecordTick records one simulation tick's wall-clock duration.
func RecordTick(d time.Duration) { tickDuration.Observe(d.Seconds()) }

// RecordBroadcast records one broadcast pass's wall-clock duration.
func RecordBroadcast(d time.Duration) { broadcastDuration.Observe(d.Seconds()) }

// UpdateSessions sets the current connected-session gauge.
func UpdateSessions(n int) { sessionsActive.Set(float64(n)) }

// UpdateAgentsAlive sets the current alive-agent gauge.
func UpdateAgentsAlive(n int) { agentsAlive.Set(float64(n)) }

// RecordMatchStarted increments the started-match counter.
func RecordMatchStarted() { matchesStarted.Inc() }

// RecordMatchEnded increments the ended-match counter for the given cause
// ("win" or "disconnect").
func RecordMatchEnded(cause string) { matchesEnded.WithLabelValues(cause).Inc() }

// RecordBadPacket increments the dropped-frame counter.
func RecordBadPacket() { badPacketTotal.Inc() }

// RecordStrategyFault increments the recovered-strategy-panic counter.
func RecordStrategyFault() { strategyFaultTotal.Inc() }

// RecordBufferOverflow increments the skipped-snapshot counter.
func RecordBufferOverflow() { bufferOverflowTotal.Inc() }

// RecordIOFault increments the socket-failure counter.
func RecordIOFault() { ioFaultTotal.Inc() }

// RecordConnectionRejected increments the rejection counter for reason,
// one of "http_rate_limit", "origin", "ws_ip_limit", "ws_total_limit".
func RecordConnectionRejected(reason string) { connectionRejected.WithLabelValues(reason).Inc() }

// RecordRequest records one HTTP request's latency and outcome.
func RecordRequest(method, endpoint string, status int, d time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(d.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// Handler returns the Prometheus scrape handler, for mounting on the public
// router in addition to the localhost-only debug server.
func Handler() http.Handler { return promhttp.Handler() }
