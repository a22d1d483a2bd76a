// Package sim simulates the sensor package of a wind turbine: an MPU-6050
// for orientation, an SW-420 for vibration, DHT11 and LM35 for the
// environment and a PZEM-004T for power.
//
// The device behaves like a periph sensor driver. Sense takes one reading,
// SenseContinuous streams readings at an interval until Halt is called.
package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// DefaultInterval is the refresh cadence of the dashboard.
const DefaultInterval = 2 * time.Second

// Opts defines the options for the simulated device.
type Opts struct {
	// Ranges overrides the interval each reading is drawn from. Nil means
	// DefaultRanges.
	Ranges Ranges
	// Rand is the source of every draw. Nil seeds one from the clock.
	Rand *rand.Rand
	// Now stamps readings. Nil means time.Now.
	Now func() time.Time
}

// Dev is a handle to a simulated turbine sensor package.
type Dev struct {
	name   string
	ranges Ranges
	now    func() time.Time

	// rmu guards rng, which is not safe for concurrent use.
	rmu sync.Mutex
	rng *rand.Rand

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a simulated device. opts may be nil.
func New(name string, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	d := &Dev{name: name, ranges: opts.Ranges, rng: opts.Rand, now: opts.Now}
	if d.ranges == nil {
		d.ranges = DefaultRanges()
	}
	if err := d.ranges.Validate(); err != nil {
		return nil, err
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("sim{%s}", d.name)
}

// Sense takes one reading right away.
func (d *Dev) Sense(s *Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return d.wrap(errors.New("already sensing continuously"))
	}
	*s = d.sense()
	return nil
}

// SenseContinuous returns readings on a continuous basis. The first reading
// is taken immediately.
//
// The application must call Halt() to stop the sensing when done to close
// the channel.
//
// It's the responsibility of the caller to retrieve the values from the
// channel as fast as possible, otherwise the interval may not be respected.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan Snapshot, error) {
	if interval <= 0 {
		return nil, d.wrap(fmt.Errorf("invalid interval %s", interval))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
		d.wg.Wait()
	}

	sensing := make(chan Snapshot)
	d.stop = make(chan struct{})
	d.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer d.wg.Done()
		defer close(sensing)
		d.sensingContinuous(interval, sensing, stop)
	}(d.stop)
	return sensing, nil
}

// Halt stops the readings initiated by SenseContinuous() and waits for the
// sensing goroutine to exit. Once it returns, no further reading is sent.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	d.stop = nil
	d.wg.Wait()
	return nil
}

func (d *Dev) sensingContinuous(interval time.Duration, sensing chan<- Snapshot, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		// Do one initial sensing right away.
		select {
		case sensing <- d.sense():
		case <-stop:
			return
		}
		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}

func (d *Dev) sense() Snapshot {
	d.rmu.Lock()
	defer d.rmu.Unlock()
	return generate(d.rng, d.ranges, d.now())
}

func (d *Dev) wrap(err error) error {
	return fmt.Errorf("%s: %w", d, err)
}
