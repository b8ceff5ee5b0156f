// Package metrics exposes Prometheus instrumentation for the
// co-simulation loop: matched-step RTT, timeouts, deadline misses,
// receive-queue depth/drops, and kernel TCP_INFO cross-checks, plus a
// cheap local-atomic mirror for in-process logging without scraping.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/actlab/hilcosim/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus series.
var (
	StepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hilcosim_steps_total",
		Help: "Total steps completed by the Simulator.",
	})
	TimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hilcosim_timeouts_total",
		Help: "Total steps that timed out waiting for matching telemetry.",
	})
	DeadlineMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hilcosim_deadline_misses_total",
		Help: "Total steps that missed the next period boundary.",
	})
	QueueDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hilcosim_queue_drops_total",
		Help: "Total receive-queue drop-oldest evictions.",
	})
	RTTSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hilcosim_step_rtt_seconds",
		Help:    "Matched-step round-trip time (t_sim_recv - t_sim_send).",
		Buckets: prometheus.ExponentialBuckets(50e-6, 2, 14), // 50µs .. ~400ms
	})
	DeadlineMissMs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hilcosim_last_deadline_miss_ms",
		Help: "Most recent step's deadline-miss amount in milliseconds (0 if not missed).",
	})
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hilcosim_rx_queue_depth",
		Help: "Current depth of the Simulator's receive queue.",
	})
	KernelRTTSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hilcosim_kernel_tcp_rtt_seconds",
		Help: "Kernel-reported TCP_INFO smoothed RTT for the session socket.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrConnect  = "connect"
	ErrBind     = "bind"
	ErrAccept   = "accept"
	ErrSend     = "send"
	ErrDecode   = "decode"
	ErrConfig   = "config"
	ErrLogWrite = "log_write"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at
// /ready on addr.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap in-process logging (avoids
// scraping Prometheus from within the same process).
var (
	localSteps          uint64
	localTimeouts       uint64
	localDeadlineMisses uint64
	localQueueDrops     uint64
	localErrors         uint64
	localQueueDepth     uint64
	localLastMissMs     uint64 // microsecond-resolution mirror, see SetLastDeadlineMiss
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	Steps          uint64
	Timeouts       uint64
	DeadlineMisses uint64
	QueueDrops     uint64
	Errors         uint64 // sum across error labels
	QueueDepth     uint64
}

// Snap returns a consistent-enough snapshot of the local counters.
func Snap() Snapshot {
	return Snapshot{
		Steps:          atomic.LoadUint64(&localSteps),
		Timeouts:       atomic.LoadUint64(&localTimeouts),
		DeadlineMisses: atomic.LoadUint64(&localDeadlineMisses),
		QueueDrops:     atomic.LoadUint64(&localQueueDrops),
		Errors:         atomic.LoadUint64(&localErrors),
		QueueDepth:     atomic.LoadUint64(&localQueueDepth),
	}
}

// IncStep records one completed step.
func IncStep() {
	StepsTotal.Inc()
	atomic.AddUint64(&localSteps, 1)
}

// IncTimeout records one step that timed out.
func IncTimeout() {
	TimeoutsTotal.Inc()
	atomic.AddUint64(&localTimeouts, 1)
}

// IncDeadlineMiss records one step that missed its deadline.
func IncDeadlineMiss() {
	DeadlineMissesTotal.Inc()
	atomic.AddUint64(&localDeadlineMisses, 1)
}

// IncQueueDrop records one drop-oldest eviction in the receive queue.
func IncQueueDrop() {
	QueueDropsTotal.Inc()
	atomic.AddUint64(&localQueueDrops, 1)
}

// ObserveRTT records a matched step's round-trip time in seconds.
func ObserveRTT(seconds float64) { RTTSeconds.Observe(seconds) }

// SetLastDeadlineMiss records the most recent step's deadline-miss
// amount, in milliseconds (0 when the deadline was not missed).
func SetLastDeadlineMiss(ms float64) {
	DeadlineMissMs.Set(ms)
	atomic.StoreUint64(&localLastMissMs, uint64(int64(ms*1000)))
}

// SetQueueDepth records the current receive-queue depth.
func SetQueueDepth(n int) {
	QueueDepth.Set(float64(n))
	atomic.StoreUint64(&localQueueDepth, uint64(n))
}

// SetKernelRTT records the kernel TCP_INFO RTT sample, in seconds.
func SetKernelRTT(seconds float64) { KernelRTTSeconds.Set(seconds) }

// IncError increments the error counter for the given subsystem label.
func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrConnect, ErrBind, ErrAccept, ErrSend, ErrDecode, ErrConfig, ErrLogWrite} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
