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

	Vehicles          *prometheus.GaugeVec // phase label: dispatched|occupied
	VisiblePassengers prometheus.Gauge
	ClockMinutes      prometheus.Gauge

	FramesAssembled prometheus.Counter
	ClockWraps      prometheus.Counter
	Seeks           prometheus.Counter

	DatasetReloads    *prometheus.CounterVec // reason label: initial|update
	DatasetLoadErrs   prometheus.Counter
	DatasetTrips      prometheus.Gauge
	DatasetPassengers prometheus.Gauge
	PickupRules       *prometheus.GaugeVec // rule label: route_match|recorded_wait|at_call|unresolved

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	SpeedMultiplier prometheus.Gauge
	TickInterval    prometheus.Gauge // seconds
	RefreshInterval prometheus.Gauge // seconds
}

func NewCollector(speedMultiplier float64, tickInterval, refreshInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Vehicles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "replay_vehicles",
			Help: "Vehicles drawn in the last frame, by phase.",
		}, []string{"phase"}),
		VisiblePassengers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_visible_passengers",
			Help: "Passengers waiting in the last frame.",
		}),
		ClockMinutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_clock_minutes",
			Help: "Current playhead in minutes of day.",
		}),
		FramesAssembled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_frames_assembled_total",
			Help: "Total frames assembled by the clock loop.",
		}),
		ClockWraps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_clock_wraps_total",
			Help: "Times the playhead looped back to the window start.",
		}),
		Seeks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_seeks_total",
			Help: "Total explicit seeks.",
		}),
		DatasetReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replay_dataset_reloads_total",
			Help: "Number of scene rebuilds.",
		}, []string{"reason"}),
		DatasetLoadErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_dataset_load_errors_total",
			Help: "Total failed dataset loads.",
		}),
		DatasetTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_dataset_trips",
			Help: "Trips in the loaded dataset.",
		}),
		DatasetPassengers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_dataset_passengers",
			Help: "Passenger events in the loaded dataset.",
		}),
		PickupRules: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "replay_pickup_resolution",
			Help: "Passengers in the loaded dataset by the rule that fixed their pickup time.",
		}, []string{"rule"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "replay_tick_duration_seconds",
			Help:    "Duration of frame assembly and publish per tick.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "replay_publish_duration_seconds",
			Help:    "Duration to marshal and publish a frame.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		SpeedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_speed_multiplier",
			Help: "Current speed multiplier.",
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_tick_interval_seconds",
			Help: "Clock tick interval in seconds.",
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_refresh_interval_seconds",
			Help: "Dataset refresh interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.Vehicles, c.VisiblePassengers, c.ClockMinutes,
		c.FramesAssembled, c.ClockWraps, c.Seeks,
		c.DatasetReloads, c.DatasetLoadErrs, c.DatasetTrips, c.DatasetPassengers, c.PickupRules,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.TickDuration, c.PublishDuration,
		c.SpeedMultiplier, c.TickInterval, c.RefreshInterval,
	)

	c.SpeedMultiplier.Set(speedMultiplier)
	c.TickInterval.Set(tickInterval.Seconds())
	c.RefreshInterval.Set(refreshInterval.Seconds())

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

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }
