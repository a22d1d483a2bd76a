// Package dashboard owns the periodic sensor feed behind the dashboard
// screen and the state it renders.
package dashboard

import (
	"context"
	"sync"
	"time"

	"TurbineMonitor/location"
	"TurbineMonitor/sim"
	"TurbineMonitor/trend"

	"github.com/charmbracelet/log"
)

// Sensor is the device the controller reads from.
type Sensor interface {
	SenseContinuous(interval time.Duration) (<-chan sim.Snapshot, error)
	Halt() error
}

// Sink receives every committed snapshot, e.g. to export it.
type Sink interface {
	Publish(ctx context.Context, s sim.Snapshot) error
}

// State is what the dashboard renders.
type State struct {
	Active     bool              `json:"active"`
	Location   location.Location `json:"location"`
	Snapshot   sim.Snapshot      `json:"snapshot"`
	Categories []sim.Category    `json:"categories"`
	Trend      []trend.Point     `json:"trend"`
}

// Options configures a Controller.
type Options struct {
	Interval time.Duration
	// Fallback is shown when the store holds no location.
	Fallback location.Location
	Sinks    []Sink
	Logger   *log.Logger
}

// Controller runs the sensor feed while the dashboard has viewers.
//
// Each tick replaces the snapshot and appends that same snapshot's power
// and temperature to the trend window.
type Controller struct {
	sensor   Sensor
	store    location.Store
	interval time.Duration
	fallback location.Location
	sinks    []Sink
	logger   *log.Logger

	// runMu serialises activation and deactivation.
	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	viewers int

	mu       sync.RWMutex
	active   bool
	loc      location.Location
	snapshot sim.Snapshot
	series   *trend.Series
	subs     map[int]chan State
	nextSub  int
}

// New returns an inactive controller.
func New(sensor Sensor, store location.Store, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = sim.DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Controller{
		sensor:   sensor,
		store:    store,
		interval: opts.Interval,
		fallback: opts.Fallback,
		sinks:    opts.Sinks,
		logger:   opts.Logger,
		loc:      opts.Fallback,
		series:   trend.New(trend.Capacity),
		subs:     map[int]chan State{},
	}
}

// Interval returns the tick cadence.
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// Active reports whether the feed is running.
func (c *Controller) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// State returns a copy of the current dashboard state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		Active:     c.active,
		Location:   c.loc,
		Snapshot:   c.snapshot,
		Categories: c.snapshot.Categories(),
		Trend:      c.series.Points(),
	}
}

// Activate starts the feed. The persisted location is read first so the
// dashboard shows the one chosen on the landing page. Activating a running
// controller does nothing.
func (c *Controller) Activate(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.activateLocked(ctx)
}

func (c *Controller) activateLocked(ctx context.Context) error {
	if c.running {
		return nil
	}

	loc, err := location.Resolve(ctx, c.store, c.fallback)
	if err != nil {
		c.logger.Warn("using fallback location", "err", err)
	}

	readings, err := c.sensor.SenseContinuous(c.interval)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	c.mu.Lock()
	c.loc = loc
	c.active = true
	c.mu.Unlock()

	go c.consume(runCtx, readings, c.done)
	c.logger.Info("feed started", "interval", c.interval, "location", loc.String())
	return nil
}

// Deactivate stops the feed and waits for it. After it returns the state
// no longer changes until the next Activate.
func (c *Controller) Deactivate() error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.deactivateLocked()
}

func (c *Controller) deactivateLocked() error {
	if !c.running {
		return nil
	}
	c.cancel()
	err := c.sensor.Halt()
	<-c.done
	c.running = false

	c.mu.Lock()
	c.active = false
	c.mu.Unlock()

	c.logger.Info("feed stopped")
	return err
}

// Attach registers a viewer. The first viewer activates the feed. The
// returned channel carries the state after every tick; detach unregisters
// the viewer, and the last one to leave deactivates the feed.
func (c *Controller) Attach(ctx context.Context) (<-chan State, func(), error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if err := c.activateLocked(ctx); err != nil {
		return nil, nil, err
	}
	c.viewers++

	updates, unsubscribe := c.Subscribe()
	var once sync.Once
	detach := func() {
		once.Do(func() {
			unsubscribe()
			c.runMu.Lock()
			defer c.runMu.Unlock()
			c.viewers--
			if c.viewers == 0 {
				if err := c.deactivateLocked(); err != nil {
					c.logger.Error("failed to stop feed", "err", err)
				}
			}
		})
	}
	return updates, detach, nil
}

// Viewers returns the number of attached viewers.
func (c *Controller) Viewers() int {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.viewers
}

// Subscribe returns a channel of states without affecting activation. A
// subscriber that falls behind only sees the latest state.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Close stops the feed regardless of viewers.
func (c *Controller) Close() error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.viewers = 0
	return c.deactivateLocked()
}

func (c *Controller) consume(ctx context.Context, readings <-chan sim.Snapshot, done chan<- struct{}) {
	defer close(done)
	for s := range readings {
		c.commit(s)
		for _, sink := range c.sinks {
			if err := sink.Publish(ctx, s); err != nil {
				c.logger.Warn("failed to publish snapshot", "err", err)
			}
		}
	}
}

func (c *Controller) commit(s sim.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = s
	c.series.Append(trend.Point{
		Label:       s.Taken.Format(trend.LabelLayout),
		Power:       s.TrendPower(),
		Temperature: s.TrendTemperature(),
	})

	st := c.stateLocked()
	for _, ch := range c.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		// Drop the stale state so the subscriber sees the latest.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
	c.logger.Debug("tick", "power", s.TrendPower(), "temperature", s.TrendTemperature())
}
