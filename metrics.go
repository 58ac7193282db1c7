package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "posproctor"

// metrics owns every collector on an explicitly constructed registry so
// nothing leaks into the process-wide default registry.
type metrics struct {
	controllerStatus   *prometheus.GaugeVec
	pumpStatus         *prometheus.GaugeVec
	dcrStatus          *prometheus.GaugeVec
	priceDisplayStatus *prometheus.GaugeVec
	loyaltyFepStatus   *prometheus.GaugeVec
	primaryFepStatus   *prometheus.GaugeVec
	scrapeSuccess      *prometheus.GaugeVec

	queryDuration       *prometheus.HistogramVec
	queryFailures       *prometheus.CounterVec
	scrapeCycleDuration *prometheus.HistogramVec
	concurrentQueries   prometheus.Gauge
	totalCommanders     *prometheus.GaugeVec
	lastScrapeTimestamp prometheus.Gauge
	appInfo             *prometheus.GaugeVec

	authFailures     *prometheus.CounterVec
	timeoutErrors    *prometheus.CounterVec
	connectionErrors *prometheus.CounterVec

	lastSuccessfulConnection *prometheus.GaugeVec
	consecutiveFailures      *prometheus.GaugeVec
}

var targetLabelNames = []string{"store", "ip", "group", "brand"}

func targetLabelValues(t target) []string {
	return []string{t.store, t.address, t.group, t.brand}
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	m := &metrics{
		controllerStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "controller_status",
				Help:      "Status of the forecourt controller (1=online, 0=offline)",
			},
			targetLabelNames),
		pumpStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "pump_status",
				Help:      "Status of individual pumps (1=online, 0=offline)",
			},
			[]string{"store", "ip", "fueling_point_id", "group", "brand"}),
		dcrStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "dcr_status",
				Help:      "Status of individual DCRs (1=online, 0=offline)",
			},
			[]string{"store", "ip", "fueling_point_id", "group", "brand"}),
		priceDisplayStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "price_display_status",
				Help:      "Status of fuel price displays (1=online, 0=offline)",
			},
			[]string{"store", "ip", "display_id", "group", "brand"}),
		loyaltyFepStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "loyalty_fep_status",
				Help:      "Status of the loyalty FEP (1=online, 0=offline)",
			},
			targetLabelNames),
		primaryFepStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "primary_fep_status",
				Help:      "Status of the primary card processor FEP (1=online, 0=offline)",
			},
			[]string{"store", "ip", "group", "brand", "fep_name"}),
		scrapeSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "scrape_success",
				Help:      "Indicates if the scrape for a commander was successful",
			},
			targetLabelNames),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      "query_duration_seconds",
				Help:      "Time spent querying commander APIs",
			},
			[]string{"store", "ip", "group", "brand", "endpoint"}),
		queryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "query_failures_total",
				Help:      "Number of failed queries per commander",
			},
			[]string{"store", "ip", "group", "brand", "error_type"}),
		scrapeCycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      "scrape_cycle_duration_seconds",
				Help:      "Total time to complete a scrape cycle",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"workers"}),
		concurrentQueries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "concurrent_queries",
				Help:      "Number of currently running queries",
			}),
		totalCommanders: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "total_commanders",
				Help:      "Total number of commanders configured",
			},
			[]string{"enabled"}),
		lastScrapeTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "last_scrape_timestamp",
				Help:      "Timestamp of last completed scrape cycle",
			}),
		appInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "app_info",
				Help:      "Application information",
			},
			[]string{"version", "scrape_interval", "timeout", "max_workers"}),
		authFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "auth_failures_total",
				Help:      "Authentication failures per commander",
			},
			targetLabelNames),
		timeoutErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "timeout_errors_total",
				Help:      "Timeout errors per commander",
			},
			targetLabelNames),
		connectionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "connection_errors_total",
				Help:      "Connection errors per commander",
			},
			targetLabelNames),
		lastSuccessfulConnection: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "last_successful_connection_timestamp",
				Help:      "Timestamp of last successful connection",
			},
			targetLabelNames),
		consecutiveFailures: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "consecutive_failures",
				Help:      "Number of consecutive failures for each commander",
			},
			targetLabelNames),
	}

	registerer.MustRegister(
		m.controllerStatus,
		m.pumpStatus,
		m.dcrStatus,
		m.priceDisplayStatus,
		m.loyaltyFepStatus,
		m.primaryFepStatus,
		m.scrapeSuccess,
		m.queryDuration,
		m.queryFailures,
		m.scrapeCycleDuration,
		m.concurrentQueries,
		m.totalCommanders,
		m.lastScrapeTimestamp,
		m.appInfo,
		m.authFailures,
		m.timeoutErrors,
		m.connectionErrors,
		m.lastSuccessfulConnection,
		m.consecutiveFailures,
	)

	return m
}

func boolToFloat64(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
