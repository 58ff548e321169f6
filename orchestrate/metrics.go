package orchestrate

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder tracks orchestration counters: agent lifecycle, execution
// outcomes, concurrency peaks and timing. Safe for concurrent use. With a
// Prometheus registerer configured the counters are additionally exported.
type MetricsRecorder struct {
	mu               sync.Mutex
	agentsCreated    int
	agentsDestroyed  int
	totalExecutions  int
	failedExecutions int
	concurrent       int
	concurrentPeak   int
	totalDuration    time.Duration

	promExecutions *prometheus.CounterVec
	promConcurrent prometheus.Gauge
	promDuration   prometheus.Histogram
}

// MetricsOptions configures a MetricsRecorder.
type MetricsOptions struct {
	// Registerer, when set, receives the exported Prometheus collectors.
	Registerer prometheus.Registerer
	// Namespace prefixes the exported metric names.
	Namespace string
}

// NewMetricsRecorder creates a recorder, optionally exporting to Prometheus.
func NewMetricsRecorder(optFns ...func(o *MetricsOptions)) *MetricsRecorder {
	opts := MetricsOptions{Namespace: "agentgate"}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &MetricsRecorder{}
	if opts.Registerer != nil {
		r.promExecutions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "executions_total",
			Help:      "Stage executions by outcome.",
		}, []string{"outcome"})
		r.promConcurrent = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "concurrent_executions",
			Help:      "Currently running stage executions.",
		})
		r.promDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "execution_duration_seconds",
			Help:      "Stage execution latency.",
			Buckets:   prometheus.DefBuckets,
		})
		opts.Registerer.MustRegister(r.promExecutions, r.promConcurrent, r.promDuration)
	}
	return r
}

// AgentCreated records one agent instantiation.
func (r *MetricsRecorder) AgentCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agentsCreated++
}

// AgentDestroyed records one agent teardown.
func (r *MetricsRecorder) AgentDestroyed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agentsDestroyed++
}

// ExecutionStarted marks a stage execution as running and updates the
// concurrency peak.
func (r *MetricsRecorder) ExecutionStarted() {
	r.mu.Lock()
	r.concurrent++
	if r.concurrent > r.concurrentPeak {
		r.concurrentPeak = r.concurrent
	}
	r.mu.Unlock()
	if r.promConcurrent != nil {
		r.promConcurrent.Inc()
	}
}

// ExecutionFinished records the outcome and duration of a stage execution.
func (r *MetricsRecorder) ExecutionFinished(d time.Duration, success bool) {
	r.mu.Lock()
	r.concurrent--
	r.totalExecutions++
	if !success {
		r.failedExecutions++
	}
	r.totalDuration += d
	r.mu.Unlock()

	if r.promConcurrent != nil {
		r.promConcurrent.Dec()
	}
	if r.promDuration != nil {
		r.promDuration.Observe(d.Seconds())
	}
	if r.promExecutions != nil {
		outcome := "success"
		if !success {
			outcome = "failure"
		}
		r.promExecutions.WithLabelValues(outcome).Inc()
	}
}

// MetricsSnapshot is a point-in-time copy of the recorded counters.
type MetricsSnapshot struct {
	AgentsCreated        int           `json:"agents_created"`
	AgentsDestroyed      int           `json:"agents_destroyed"`
	TotalExecutions      int           `json:"total_executions"`
	FailedExecutions     int           `json:"failed_executions"`
	ConcurrentPeak       int           `json:"concurrent_peak"`
	AverageExecutionTime time.Duration `json:"average_execution_time"`
	SuccessRate          float64       `json:"success_rate"`
}

// Snapshot returns the current counters. SuccessRate is a percentage and
// reports 0.0 before the first execution.
func (r *MetricsRecorder) Snapshot() MetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := MetricsSnapshot{
		AgentsCreated:    r.agentsCreated,
		AgentsDestroyed:  r.agentsDestroyed,
		TotalExecutions:  r.totalExecutions,
		FailedExecutions: r.failedExecutions,
		ConcurrentPeak:   r.concurrentPeak,
	}
	if r.totalExecutions > 0 {
		s.AverageExecutionTime = r.totalDuration / time.Duration(r.totalExecutions)
		s.SuccessRate = float64(r.totalExecutions-r.failedExecutions) / float64(r.totalExecutions) * 100.0
	}
	return s
}
