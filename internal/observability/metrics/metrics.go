package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "ledger_"

	// ResultSuccess labels a successful operation.
	ResultSuccess = "success"
	// ResultError labels a failed operation.
	ResultError = "error"
)

var (
	registerOnce sync.Once

	voucherPostTotal   *prometheus.CounterVec
	voucherPostLatency *prometheus.HistogramVec

	voucherReverseTotal *prometheus.CounterVec

	yearCloseTotal   *prometheus.CounterVec
	yearCloseLatency *prometheus.HistogramVec

	reportTotal   *prometheus.CounterVec
	reportLatency *prometheus.HistogramVec

	reportExportTotal *prometheus.CounterVec

	balanceCacheHits   prometheus.Counter
	balanceCacheMisses prometheus.Counter

	integrityErrors prometheus.Counter
)

// Init registers ledger metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		voucherPostTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "voucher_post_total",
				Help: "Total voucher submissions by result",
			},
			[]string{"result"},
		)
		voucherPostLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "voucher_post_latency_seconds",
				Help:    "Voucher submission latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		voucherReverseTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "voucher_reverse_total",
				Help: "Total voucher reversals by result",
			},
			[]string{"result"},
		)

		yearCloseTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "year_close_total",
				Help: "Total financial year close operations by result",
			},
			[]string{"result"},
		)
		yearCloseLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "year_close_latency_seconds",
				Help:    "Financial year close latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_generate_total",
				Help: "Total report generations by report and result",
			},
			[]string{"report", "result"},
		)
		reportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_generate_latency_seconds",
				Help:    "Report generation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report", "result"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by report, format and result",
			},
			[]string{"report", "format", "result"},
		)

		balanceCacheHits = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "balance_cache_hits_total",
				Help: "Total balance cache hits",
			},
		)
		balanceCacheMisses = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "balance_cache_misses_total",
				Help: "Total balance cache misses",
			},
		)

		integrityErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "integrity_errors_total",
				Help: "Total store integrity violations (bugs, not bad input)",
			},
		)

		prometheus.MustRegister(
			voucherPostTotal,
			voucherPostLatency,
			voucherReverseTotal,
			yearCloseTotal,
			yearCloseLatency,
			reportTotal,
			reportLatency,
			reportExportTotal,
			balanceCacheHits,
			balanceCacheMisses,
			integrityErrors,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveVoucherPost records a voucher submission result and duration.
func ObserveVoucherPost(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if voucherPostTotal != nil {
		voucherPostTotal.WithLabelValues(result).Inc()
	}
	if voucherPostLatency != nil {
		voucherPostLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveVoucherReverse records a reversal result.
func ObserveVoucherReverse(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if voucherReverseTotal != nil {
		voucherReverseTotal.WithLabelValues(result).Inc()
	}
}

// ObserveYearClose records a year close result and duration.
func ObserveYearClose(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if yearCloseTotal != nil {
		yearCloseTotal.WithLabelValues(result).Inc()
	}
	if yearCloseLatency != nil {
		yearCloseLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveReport records a report generation result and duration.
func ObserveReport(report, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if reportTotal != nil {
		reportTotal.WithLabelValues(report, result).Inc()
	}
	if reportLatency != nil {
		reportLatency.WithLabelValues(report, result).Observe(duration.Seconds())
	}
}

// ObserveReportExport records a report export by format.
func ObserveReportExport(report, format, result string) {
	if result == "" {
		result = ResultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(report, format, result).Inc()
	}
}

// BalanceCacheHit increments the balance cache hit counter.
func BalanceCacheHit() {
	if balanceCacheHits != nil {
		balanceCacheHits.Inc()
	}
}

// BalanceCacheMiss increments the balance cache miss counter.
func BalanceCacheMiss() {
	if balanceCacheMisses != nil {
		balanceCacheMisses.Inc()
	}
}

// IntegrityError increments the integrity violation counter.
func IntegrityError() {
	if integrityErrors != nil {
		integrityErrors.Inc()
	}
}

// ResultLabel maps an error to the success/error label.
func ResultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
