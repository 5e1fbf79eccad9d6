package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	RunsTotal prometheus.Counter
	RunErrors prometheus.Counter
	LastRun   prometheus.Gauge

	SnapshotsProcessed prometheus.Counter
	SnapshotsSkipped   *prometheus.CounterVec // reason label: missing|malformed|other

	MatchedTrips  prometheus.Gauge
	CorpusSamples prometheus.Gauge

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	RunDuration     prometheus.Histogram
	FetchDuration   prometheus.Histogram
	PublishDuration prometheus.Histogram

	FetchInterval prometheus.Gauge // seconds
	DepartStep    prometheus.Gauge // seconds
}

func NewCollector(fetchInterval, departStep time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lateness_runs_total",
			Help: "Total estimation runs.",
		}),
		RunErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lateness_run_errors_total",
			Help: "Total estimation runs that failed.",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lateness_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run.",
		}),
		SnapshotsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lateness_snapshots_processed_total",
			Help: "Total schedule snapshots read into the corpus.",
		}),
		SnapshotsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lateness_snapshots_skipped_total",
			Help: "Total schedule snapshots skipped.",
		}, []string{"reason"}),
		MatchedTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lateness_matched_trips",
			Help: "Trips matched across all snapshots in the last run.",
		}),
		CorpusSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lateness_corpus_samples",
			Help: "Samples feeding the estimator after filtering.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lateness_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lateness_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lateness_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lateness_run_duration_seconds",
			Help:    "Duration of one corpus build and estimation run.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lateness_fetch_duration_seconds",
			Help:    "Duration of one feed archive download.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lateness_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		FetchInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lateness_fetch_interval_seconds",
			Help: "Configured interval between feed fetches in seconds.",
		}),
		DepartStep: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lateness_depart_step_seconds",
			Help: "Configured departure grid step in seconds.",
		}),
	}

	// Register
	reg.MustRegister(
		c.RunsTotal, c.RunErrors, c.LastRun,
		c.SnapshotsProcessed, c.SnapshotsSkipped,
		c.MatchedTrips, c.CorpusSamples,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.RunDuration, c.FetchDuration, c.PublishDuration,
		c.FetchInterval, c.DepartStep,
	)

	// Set static gauges
	c.FetchInterval.Set(fetchInterval.Seconds())
	c.DepartStep.Set(departStep.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
