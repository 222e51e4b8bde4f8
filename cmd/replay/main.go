package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"dispatch-replay/internal/config"
	"dispatch-replay/internal/control"
	"dispatch-replay/internal/dataset"
	"dispatch-replay/internal/db"
	"dispatch-replay/internal/metrics"
	"dispatch-replay/internal/publisher"
	"dispatch-replay/internal/sim"
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

	// Dataset source
	var source sim.DatasetSource
	switch cfg.DatasetSource {
	case config.SourcePostgres:
		var sqlDB *sql.DB
		sqlDB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db open error: %v", err)
		}
		defer sqlDB.Close()
		if err := db.Ping(ctx, sqlDB); err != nil {
			log.Fatalf("db ping error: %v", err)
		}
		source = &dataset.DBSource{DB: sqlDB, RunID: cfg.RunID}
		log.Printf("reading datasets from postgres (run %q)", cfg.RunID)
	default:
		source = dataset.FileSource{TripsPath: cfg.TripsPath, PassengersPath: cfg.PassengersPath}
		log.Printf("reading datasets from %s and %s", cfg.TripsPath, cfg.PassengersPath)
	}

	// Metrics setup
	var mcol *metrics.Collector
	var servers []*http.Server
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.SpeedMultiplier, cfg.TickInterval, cfg.RefreshInterval)
		servers = append(servers, mcol.Serve(cfg.MetricsAddr))
	}

	// Initialize NATS publisher
	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
	if err != nil {
		log.Fatalf("nats error: %v", err)
	}
	defer pub.Close()

	opts := sim.SceneOptions{
		DomainMin: cfg.StartMinutes,
		Match:     sim.MatchOptions{ToleranceMeters: cfg.PickupToleranceMeters},
	}
	if opts.Match.ToleranceMeters > 0 {
		log.Printf("pickup matching uses a %.1fm tolerance instead of exact coordinates", opts.Match.ToleranceMeters)
	}
	mgr := sim.NewManager(source, pub, cfg.TickInterval, cfg.IncrementUnit, cfg.SpeedMultiplier, cfg.RefreshInterval, opts, mcol)
	if err := mgr.Load(ctx); err != nil {
		log.Fatalf("load dataset error: %v", err)
	}
	mgr.Start(ctx)
	mgr.StartRefresher(ctx)

	// Control surface for the slider / time readout
	if cfg.ControlAddr != "" {
		srv := control.NewServer(cfg.ControlAddr, mgr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("control server error: %v", err)
			}
		}()
		log.Printf("control listening on %s", cfg.ControlAddr)
		servers = append(servers, srv)
	}

	// Block until context cancelled
	<-ctx.Done()
	mgr.Stop()
	for _, srv := range servers {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}
	log.Println("shutdown complete")
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
