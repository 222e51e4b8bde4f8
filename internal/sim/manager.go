package sim

import (
	"context"
	"log"
	"sync"
	"time"

	"dispatch-replay/internal/dispatch"
	mmetrics "dispatch-replay/internal/metrics"
)

// DatasetSource yields the dataset to replay.
type DatasetSource interface {
	Load(ctx context.Context) (*dispatch.Dataset, error)
}

// FrameSink receives every frame the clock loop assembles.
type FrameSink interface {
	PublishFrame(f Frame) error
}

type Manager struct {
	source          DatasetSource
	sink            FrameSink
	tickInterval    time.Duration
	refreshInterval time.Duration
	opts            SceneOptions
	metrics         *mmetrics.Collector

	clock *Clock

	mu        sync.RWMutex
	scene     *Scene
	stopClock func()

	refreshCancel context.CancelFunc
	refreshWG     sync.WaitGroup
}

func NewManager(source DatasetSource, sink FrameSink, tickInterval time.Duration, incrementUnit, speedMultiplier float64, refreshInterval time.Duration, opts SceneOptions, metrics *mmetrics.Collector) *Manager {
	empty := NewScene(nil, opts)
	return &Manager{
		source:          source,
		sink:            sink,
		tickInterval:    tickInterval,
		refreshInterval: refreshInterval,
		opts:            opts,
		metrics:         metrics,
		clock:           NewClock(empty.Window, incrementUnit, speedMultiplier),
		scene:           empty,
	}
}

// Scene returns the scene frames are currently derived from.
func (m *Manager) Scene() *Scene {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scene
}

// Reload rebuilds the scene from ds unless its content is unchanged. It
// reports whether a new scene was installed.
func (m *Manager) Reload(ds *dispatch.Dataset, reason string) bool {
	fp := ds.Fingerprint()
	m.mu.RLock()
	same := m.scene != nil && m.scene.Fingerprint == fp && reason != "initial"
	m.mu.RUnlock()
	if same {
		return false
	}

	scene := NewScene(ds, m.opts)
	m.mu.Lock()
	m.scene = scene
	m.mu.Unlock()
	m.clock.SetWindow(scene.Window)

	rules := make(map[PickupRule]int)
	for _, p := range scene.Passengers {
		rules[p.Rule]++
	}
	log.Printf("scene loaded (%s): %d trips, %d passengers, window %s-%s, pickup rules route_match=%d recorded_wait=%d at_call=%d unresolved=%d",
		reason, len(scene.Trips), len(scene.Passengers), FormatClock(scene.Window.Min), FormatClock(scene.Window.Max),
		rules[PickupRouteMatch], rules[PickupRecordedWait], rules[PickupAtCall], rules[PickupUnresolved])
	if m.metrics != nil {
		m.metrics.DatasetReloads.WithLabelValues(reason).Inc()
		m.metrics.DatasetTrips.Set(float64(len(scene.Trips)))
		m.metrics.DatasetPassengers.Set(float64(len(scene.Passengers)))
		for _, r := range []PickupRule{PickupRouteMatch, PickupRecordedWait, PickupAtCall, PickupUnresolved} {
			m.metrics.PickupRules.WithLabelValues(r.String()).Set(float64(rules[r]))
		}
	}
	return true
}

// Load fetches the dataset from the source and installs it.
func (m *Manager) Load(ctx context.Context) error {
	ds, err := m.source.Load(ctx)
	if err != nil {
		if m.metrics != nil {
			m.metrics.DatasetLoadErrs.Inc()
		}
		return err
	}
	m.Reload(ds, "initial")
	return nil
}

// Start runs the clock loop. Each tick derives one frame at the tick's clock
// value and hands it to the sink.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopClock != nil {
		return
	}
	w := m.clock.Window()
	log.Printf("starting replay at %s (window %s-%s, %.2f min per tick every %s)",
		FormatClock(m.clock.Now()), FormatClock(w.Min), FormatClock(w.Max), m.clock.StepSize(), m.tickInterval)
	m.stopClock = m.clock.Start(ctx, m.tickInterval, m.tick)
}

func (m *Manager) tick(now float64, wrapped bool) {
	tickStart := time.Now()
	if wrapped {
		log.Printf("replay looped back to %s", FormatClock(now))
	}
	f := m.Scene().Frame(now)
	if m.sink != nil {
		if err := m.sink.PublishFrame(f); err != nil {
			log.Printf("publish frame %s error: %v", f.Clock, err)
		}
	}
	if m.metrics != nil {
		m.metrics.FramesAssembled.Inc()
		m.metrics.ClockMinutes.Set(now)
		m.metrics.Vehicles.WithLabelValues(PhaseDispatched.String()).Set(float64(len(f.DispatchArcs)))
		m.metrics.Vehicles.WithLabelValues(PhaseOccupied.String()).Set(float64(len(f.OccupiedArcs)))
		m.metrics.VisiblePassengers.Set(float64(len(f.VisiblePassengers)))
		if wrapped {
			m.metrics.ClockWraps.Inc()
		}
		m.metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
	}
}

func (m *Manager) Stop() {
	if m.refreshCancel != nil {
		m.refreshCancel()
	}
	m.refreshWG.Wait()
	m.mu.Lock()
	stop := m.stopClock
	m.stopClock = nil
	m.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// StartRefresher launches a background loop that periodically reloads the
// dataset and swaps the scene when its content changed.
func (m *Manager) StartRefresher(parent context.Context) {
	if m.refreshInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	m.refreshCancel = cancel
	m.refreshWG.Add(1)
	go func() {
		defer m.refreshWG.Done()
		ticker := time.NewTicker(m.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RefreshDataset(ctx); err != nil {
					log.Printf("refresh dataset error: %v", err)
				}
			}
		}
	}()
}

// RefreshDataset reloads from the source; the scene is only rebuilt when the
// content changed.
func (m *Manager) RefreshDataset(ctx context.Context) (bool, error) {
	ds, err := m.source.Load(ctx)
	if err != nil {
		if m.metrics != nil {
			m.metrics.DatasetLoadErrs.Inc()
		}
		return false, err
	}
	return m.Reload(ds, "update"), nil
}

// TimeWindow is the slider domain.
func (m *Manager) TimeWindow() TimeWindow { return m.clock.Window() }

// Now is the current playhead.
func (m *Manager) Now() float64 { return m.clock.Now() }

// Seek moves the playhead; the next tick advances from the new value.
func (m *Manager) Seek(t float64) float64 {
	now := m.clock.Seek(t)
	if m.metrics != nil {
		m.metrics.Seeks.Inc()
		m.metrics.ClockMinutes.Set(now)
	}
	return now
}

// FrameAt derives a frame at an arbitrary time without moving the playhead.
func (m *Manager) FrameAt(t float64) Frame { return m.Scene().Frame(t) }

// CurrentFrame derives the frame at the playhead.
func (m *Manager) CurrentFrame() Frame { return m.FrameAt(m.clock.Now()) }
