package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"gtfs-lateness/internal/config"
	"gtfs-lateness/internal/corpus"
	"gtfs-lateness/internal/fetch"
	"gtfs-lateness/internal/gtfs"
	"gtfs-lateness/internal/lateness"
	"gtfs-lateness/internal/metrics"
	"gtfs-lateness/internal/publisher"
	"gtfs-lateness/internal/report"
	"gtfs-lateness/internal/schedule"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := "analyze"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "analyze":
		var pub *publisher.NATSPublisher
		if cfg.NATSURL != "" {
			pub, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, nil)
			if err != nil {
				log.Fatalf("nats error: %v", err)
			}
			defer pub.Close()
		}
		if err := runOnce(ctx, cfg, pub, nil); err != nil {
			log.Fatalf("analyze error: %v", err)
		}
	case "fetch":
		if _, err := fetchSnapshot(ctx, cfg); err != nil {
			log.Fatalf("fetch error: %v", err)
		}
	case "watch":
		if err := watch(ctx, cfg); err != nil {
			log.Fatalf("watch error: %v", err)
		}
	default:
		log.Fatalf("unknown command %q (want analyze, fetch or watch)", cmd)
	}
}

// runOnce builds the corpus from the configured source, estimates the
// lateness curve and renders every configured output.
func runOnce(ctx context.Context, cfg *config.Config, pub *publisher.NATSPublisher, mcol *metrics.Collector) error {
	snaps, err := snapshots(ctx, cfg)
	if err != nil {
		return err
	}
	sel := schedule.Selection{
		LineName:        cfg.LineName,
		OriginStop:      cfg.OriginStop,
		DestinationStop: cfg.DestinationStop,
	}
	win := schedule.Window{StartSec: cfg.WindowStartSec, EndSec: cfg.WindowEndSec}
	c, err := corpus.Build(ctx, snaps, sel, win)
	if err != nil {
		return err
	}
	if mcol != nil {
		mcol.SnapshotsProcessed.Add(float64(len(c.Days)))
		for _, sk := range c.Skipped {
			mcol.SnapshotsSkipped.WithLabelValues(sk.Class).Inc()
		}
		mcol.MatchedTrips.Set(float64(len(c.All)))
	}

	samples := c.All
	dropped := 0
	if !cfg.IncludeNegative {
		kept := report.PositiveTravel(samples)
		dropped = len(samples) - len(kept)
		samples = kept
	}
	if mcol != nil {
		mcol.CorpusSamples.Set(float64(len(samples)))
	}

	model := lateness.Model{
		WalkToStopSec:   int(cfg.WalkToStop.Seconds()),
		WalkFromStopSec: int(cfg.WalkFromStop.Seconds()),
		DeadlineSec:     cfg.MeetingSec,
	}
	est, err := lateness.New(samples, model)
	if err != nil {
		return err
	}
	curve := est.Curve(lateness.Departures(cfg.DepartFromSec, cfg.DepartToSec, int(cfg.DepartStep.Seconds())))

	sum := report.Summary{
		RunID:       uuid.NewString(),
		Line:        cfg.LineName,
		Origin:      cfg.OriginStop,
		Destination: cfg.DestinationStop,
		Corpus:      c,
		Stats:       report.TravelStats(samples),
		Dropped:     dropped,
		Model:       model,
		Curve:       curve,
	}
	report.Write(os.Stdout, sum)
	if cfg.ListTrips {
		report.WriteTrips(os.Stdout, c)
	}

	title := fmt.Sprintf("%s: %s to %s", cfg.LineName, cfg.OriginStop, cfg.DestinationStop)
	if cfg.ChartHTML != "" {
		if err := report.WriteHTMLChart(cfg.ChartHTML, title, curve); err != nil {
			return fmt.Errorf("write html chart: %w", err)
		}
		log.Printf("wrote %s", cfg.ChartHTML)
	}
	if cfg.ChartPNG != "" {
		if err := report.WritePNGChart(cfg.ChartPNG, title, curve); err != nil {
			return fmt.Errorf("write png chart: %w", err)
		}
		log.Printf("wrote %s", cfg.ChartPNG)
	}
	if cfg.ParquetOut != "" {
		if err := report.WriteParquet(cfg.ParquetOut, c); err != nil {
			return fmt.Errorf("write parquet: %w", err)
		}
		log.Printf("wrote %s", cfg.ParquetOut)
	}

	if pub != nil {
		if err := pub.PublishRunSummary(runSummaryMessage(sum)); err != nil {
			log.Printf("publish run summary: %v", err)
		}
	}
	return nil
}

func snapshots(ctx context.Context, cfg *config.Config) ([]corpus.Snapshot, error) {
	if cfg.ScheduleSource == "postgres" {
		return corpus.ImportSnapshots(ctx, cfg.DatabaseURL, cfg.City)
	}
	return corpus.DirSnapshots(cfg.DataRoot)
}

func fetchSnapshot(ctx context.Context, cfg *config.Config) (string, error) {
	day := time.Now().In(cfg.Location).Format("2006-01-02")
	return fetch.Fetch(ctx, nil, fetch.Options{FeedURL: cfg.FeedURL, DataRoot: cfg.DataRoot, Day: day})
}

// watch fetches a fresh snapshot and re-runs the estimation on every tick
// until the context is cancelled.
func watch(ctx context.Context, cfg *config.Config) error {
	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.FetchInterval, cfg.DepartStep)
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			// Shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var pub *publisher.NATSPublisher
	if cfg.NATSURL != "" {
		var err error
		pub, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer pub.Close()
	}

	ticker := time.NewTicker(cfg.FetchInterval)
	defer ticker.Stop()
	for {
		watchRun(ctx, cfg, pub, mcol)
		select {
		case <-ctx.Done():
			if metricsSrvCancel != nil {
				metricsSrvCancel()
			}
			log.Println("shutdown complete")
			return nil
		case <-ticker.C:
		}
	}
}

func watchRun(ctx context.Context, cfg *config.Config, pub *publisher.NATSPublisher, mcol *metrics.Collector) {
	start := time.Now()
	if cfg.ScheduleSource == "dir" {
		fstart := time.Now()
		if _, err := fetchSnapshot(ctx, cfg); err != nil {
			// The run still proceeds on previously fetched snapshots.
			log.Printf("fetch error: %v", err)
		} else if mcol != nil {
			mcol.FetchDuration.Observe(time.Since(fstart).Seconds())
		}
	}

	err := runOnce(ctx, cfg, pub, mcol)
	if mcol != nil {
		mcol.RunsTotal.Inc()
		mcol.RunDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			mcol.RunErrors.Inc()
		} else {
			mcol.LastRun.SetToCurrentTime()
		}
	}
	if err != nil {
		log.Printf("run error: %v", err)
	}
}

func runSummaryMessage(s report.Summary) publisher.RunSummary {
	msg := publisher.RunSummary{
		RunID:           s.RunID,
		GeneratedAt:     time.Now().UTC(),
		Line:            s.Line,
		Origin:          s.Origin,
		Destination:     s.Destination,
		Snapshots:       len(s.Corpus.Days),
		Skipped:         len(s.Corpus.Skipped),
		Samples:         s.Stats.Count,
		MeanTravelMin:   s.Stats.MeanMin,
		MedianTravelMin: s.Stats.MedianMin,
	}
	for _, pt := range s.Curve {
		msg.Curve = append(msg.Curve, publisher.CurvePoint{
			Departure:   gtfs.FormatClock(pt.DepartureSec),
			Probability: pt.Probability,
		})
	}
	return msg
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
