// Package metrics provides Prometheus metrics for the teamclash service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Settlement
	settlementTicks       prometheus.Counter
	settlementsTotal      *prometheus.CounterVec
	settlementsSkipped    prometheus.Counter
	settlementErrors      prometheus.Counter
	settlementLatency     prometheus.Histogram
	settlementTickLatency prometheus.Histogram
	rewardedUsers         prometheus.Counter
	pendingSettlements    prometheus.Gauge
	schedulerRunning      prometheus.Gauge

	// Standings and status reads
	standingsLatency prometheus.Histogram
	statusRequests   *prometheus.CounterVec
	teamTotals       *prometheus.GaugeVec

	// Ledger / events
	usersTotal         prometheus.Gauge
	eventsTotal        prometheus.Gauge
	currencyAdjustment prometheus.Counter

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "teamclash",
		subsystem:        "competition",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.settlementTicks = auto.NewCounter(m.counterOpts(
		"settlement_ticks_total", "Total number of settlement passes executed"))
	m.settlementsTotal = auto.NewCounterVec(m.counterOpts(
		"settlements_total", "Total number of events settled, by outcome"), []string{"winner"})
	m.settlementsSkipped = auto.NewCounter(m.counterOpts(
		"settlements_skipped_total", "Settlement attempts that found the event already settled or in flight"))
	m.settlementErrors = auto.NewCounter(m.counterOpts(
		"settlement_errors_total", "Settlement attempts that failed and left the event pending"))
	m.settlementLatency = auto.NewHistogram(m.histogramOpts(
		"settlement_latency_milliseconds", "Latency of settling a single event in milliseconds", m.histogramBuckets))
	m.settlementTickLatency = auto.NewHistogram(m.histogramOpts(
		"settlement_tick_latency_milliseconds", "Latency of a whole settlement pass in milliseconds", m.histogramBuckets))
	m.rewardedUsers = auto.NewCounter(m.counterOpts(
		"rewarded_users_total", "Total number of users paid a settlement reward"))
	m.pendingSettlements = auto.NewGauge(m.gaugeOpts(
		"pending_settlements", "Ended events found waiting for settlement in the last pass"))
	m.schedulerRunning = auto.NewGauge(m.gaugeOpts(
		"scheduler_running", "1 while the settlement scheduler loop is running"))

	m.standingsLatency = auto.NewHistogram(m.histogramOpts(
		"standings_latency_milliseconds", "Latency of computing team standings in milliseconds", m.histogramBuckets))
	m.statusRequests = auto.NewCounterVec(m.counterOpts(
		"status_requests_total", "Status views served, by view kind"), []string{"view"})
	m.teamTotals = auto.NewGaugeVec(m.gaugeOpts(
		"team_currency_total", "Last observed currency total per team"), []string{"team"})

	m.usersTotal = auto.NewGauge(m.gaugeOpts(
		"users_total", "Number of users in the ledger"))
	m.eventsTotal = auto.NewGauge(m.gaugeOpts(
		"events_total", "Number of events in the event store"))
	m.currencyAdjustment = auto.NewCounter(m.counterOpts(
		"currency_adjustments_total", "Number of currency adjustments applied to the ledger"))

	m.repositoryUpdateLatency = auto.NewHistogram(m.histogramOpts(
		"repository_update_latency_milliseconds", "Repository write latency in milliseconds", m.histogramBuckets))
	m.repositoryQueryLatency = auto.NewHistogram(m.histogramOpts(
		"repository_query_latency_milliseconds", "Repository read latency in milliseconds", m.histogramBuckets))

	m.httpRequests = auto.NewCounterVec(m.counterOpts(
		"http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts(
		"http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts(
		"errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts(
		"errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts(
		"errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts(
		"error_latency_milliseconds", "Latency of operations that resulted in errors", m.histogramBuckets),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Settlement metrics.

// RecordSettlementTick increments the settlement pass counter.
func RecordSettlementTick() {
	if !globalManager.enabled {
		return
	}
	globalManager.settlementTicks.Inc()
}

// RecordSettlement counts a committed settlement with its winner ("draw" for ties).
func RecordSettlement(winner string) {
	if !globalManager.enabled {
		return
	}
	globalManager.settlementsTotal.WithLabelValues(winner).Inc()
}

// RecordSettlementSkipped counts an attempt that lost the compare-and-set or the in-flight claim.
func RecordSettlementSkipped() {
	if !globalManager.enabled {
		return
	}
	globalManager.settlementsSkipped.Inc()
}

// RecordSettlementError counts a failed settlement attempt.
func RecordSettlementError() {
	if !globalManager.enabled {
		return
	}
	globalManager.settlementErrors.Inc()
}

// RecordSettlementLatency records single-event settlement latency.
func RecordSettlementLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.settlementLatency.Observe(latencyMs)
}

// RecordSettlementTickLatency records the latency of a whole pass.
func RecordSettlementTickLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.settlementTickLatency.Observe(latencyMs)
}

// RecordRewardedUsers adds n paid users.
func RecordRewardedUsers(n int64) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.rewardedUsers.Add(float64(n))
}

// UpdatePendingSettlements sets the number of candidates found in the last pass.
func UpdatePendingSettlements(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.pendingSettlements.Set(float64(n))
}

// UpdateSchedulerRunning flags whether the scheduler loop is running.
func UpdateSchedulerRunning(running bool) {
	if !globalManager.enabled {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	globalManager.schedulerRunning.Set(v)
}

// Standings metrics.

// RecordStandingsLatency records aggregation latency.
func RecordStandingsLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.standingsLatency.Observe(latencyMs)
}

// RecordStatusRequest counts a served status view ("student", "teacher").
func RecordStatusRequest(view string) {
	if !globalManager.enabled {
		return
	}
	globalManager.statusRequests.WithLabelValues(view).Inc()
}

// UpdateTeamTotal sets the last observed currency total for team.
func UpdateTeamTotal(team string, total int64) {
	if !globalManager.enabled {
		return
	}
	globalManager.teamTotals.WithLabelValues(team).Set(float64(total))
}

// Ledger metrics.

// UpdateUsersTotal sets the ledger user count.
func UpdateUsersTotal(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.usersTotal.Set(float64(count))
}

// UpdateEventsTotal sets the event count.
func UpdateEventsTotal(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.eventsTotal.Set(float64(count))
}

// RecordCurrencyAdjustment counts an applied currency adjustment.
func RecordCurrencyAdjustment() {
	if !globalManager.enabled {
		return
	}
	globalManager.currencyAdjustment.Inc()
}

// Repository metrics.

// RecordRepositoryUpdateLatency records repository write latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository read latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Configure rebuilds the global manager on a fresh registry. Call it once at
// startup, before GetRegistry is served and before recording starts.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	opts = append(opts, WithPrometheusRegistry(registry))
	customRegistry = registry
	globalManager = NewManager(opts...)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// SinceMs returns the milliseconds elapsed since start as a float.
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
