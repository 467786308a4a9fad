package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "vouchers_posted",
			Help: "Total vouchers in the ledger store",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM gl_vouchers")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "sequence_value",
			Help: "Current ledger sequence counter",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT value FROM gl_sequence")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "open_financial_years",
			Help: "Financial years currently open",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM gl_financial_years WHERE status = 'open'")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
