package sim

import (
	"fmt"
	"math/rand"
	"sort"
)

// Reading labels. They double as the keys of a Ranges table and of
// Snapshot.Values.
const (
	LabelXAxis        = "X-Axis"
	LabelYAxis        = "Y-Axis"
	LabelZAxis        = "Z-Axis"
	LabelAcceleration = "Acceleration"

	LabelStatus    = "Status"
	LabelLevel     = "Level"
	LabelFrequency = "Frequency"
	LabelAmplitude = "Amplitude"

	LabelHumidity = "Humidity"
	LabelTempDHT  = "Temp (DHT11)"
	LabelTempLM35 = "Temp (LM35)"
	LabelPressure = "Pressure"

	LabelVoltage = "Voltage"
	LabelCurrent = "Current"
	LabelPower   = "Power"
	LabelEnergy  = "Energy"
)

// Range is a half-open interval [Min, Max) a simulated reading is drawn from.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies in [Min, Max).
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v < r.Max
}

func (r Range) draw(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

func (r Range) valid() bool {
	return r.Min < r.Max
}

// Ranges maps a reading label to the interval it is simulated in.
type Ranges map[string]Range

// DefaultRanges returns the ranges the dashboard has always used.
//
// Power is drawn as 220V times a current in [0,5), hence [0,1100).
func DefaultRanges() Ranges {
	return Ranges{
		LabelXAxis:        {0, 360},
		LabelYAxis:        {0, 360},
		LabelZAxis:        {0, 360},
		LabelAcceleration: {0, 10},

		LabelLevel:     {0, 100},
		LabelFrequency: {0, 60},
		LabelAmplitude: {0, 5},

		LabelHumidity: {0, 100},
		LabelTempDHT:  {20, 30},
		LabelTempLM35: {20, 30},
		LabelPressure: {100, 102},

		LabelVoltage: {220, 230},
		LabelCurrent: {0, 5},
		LabelPower:   {0, 1100},
		LabelEnergy:  {0, 1000},
	}
}

// Validate checks that every default label is present and every range is
// non-empty.
func (r Ranges) Validate() error {
	for _, label := range DefaultRanges().labels() {
		rg, ok := r[label]
		if !ok {
			return fmt.Errorf("sim: missing range for %q", label)
		}
		if !rg.valid() {
			return fmt.Errorf("sim: invalid range for %q: min %g must be below max %g", label, rg.Min, rg.Max)
		}
	}
	return nil
}

// Merge returns a copy of r with the ranges in over replacing their
// counterparts. Unknown labels are rejected.
func (r Ranges) Merge(over Ranges) (Ranges, error) {
	out := make(Ranges, len(r))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range over {
		if _, ok := out[k]; !ok {
			return nil, fmt.Errorf("sim: unknown reading %q", k)
		}
		out[k] = v
	}
	return out, out.Validate()
}

func (r Ranges) labels() []string {
	labels := make([]string, 0, len(r))
	for k := range r {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}
