package sim

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"periph.io/x/conn/v3/physic"
)

// VibrationStatus is the coarse vibration classification.
type VibrationStatus string

const (
	VibrationNormal VibrationStatus = "Normal"
	VibrationMedium VibrationStatus = "Medium"
	VibrationHigh   VibrationStatus = "High"
)

// Orientation is the MPU-6050 gyroscope and accelerometer reading.
type Orientation struct {
	X, Y, Z      float64 // degrees
	Acceleration float64 // m/s²
}

// Vibration is the SW-420 vibration reading.
type Vibration struct {
	Status    VibrationStatus
	Level     float64 // percent
	Frequency physic.Frequency
	Amplitude float64 // mm
}

// Environment holds the DHT11 reading (temperature, humidity, pressure) and
// the LM35 temperature.
type Environment struct {
	DHT11 physic.Env
	LM35  physic.Temperature
}

// Power is the PZEM-004T reading.
type Power struct {
	Voltage physic.ElectricPotential
	Current physic.ElectricCurrent
	Power   physic.Power
	Energy  float64 // kWh
}

// Snapshot is one complete set of turbine readings.
//
// The zero value is the reading shown before the first tick.
type Snapshot struct {
	Taken       time.Time
	Orientation Orientation
	Vibration   Vibration
	Environment Environment
	Power       Power
}

// Reading is one labelled, display formatted value.
type Reading struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Category groups the readings of one sensor card.
type Category struct {
	Key      string    `json:"key"`
	Title    string    `json:"title"`
	Color    string    `json:"color"`
	Readings []Reading `json:"readings"`
}

// Category keys.
const (
	CategoryOrientation = "orientation"
	CategoryVibration   = "vibration"
	CategoryEnvironment = "environment"
	CategoryPower       = "power"
)

// IsZero reports whether no reading has been taken yet.
func (s Snapshot) IsZero() bool {
	return s.Taken.IsZero()
}

// Values returns the numeric readings keyed by label, in the units they are
// displayed in. Status is not numeric and is left out.
func (s Snapshot) Values() map[string]float64 {
	return map[string]float64{
		LabelXAxis:        s.Orientation.X,
		LabelYAxis:        s.Orientation.Y,
		LabelZAxis:        s.Orientation.Z,
		LabelAcceleration: s.Orientation.Acceleration,

		LabelLevel:     s.Vibration.Level,
		LabelFrequency: float64(s.Vibration.Frequency) / float64(physic.Hertz),
		LabelAmplitude: s.Vibration.Amplitude,

		LabelHumidity: s.humidity(),
		LabelTempDHT:  s.Environment.DHT11.Temperature.Celsius(),
		LabelTempLM35: s.Environment.LM35.Celsius(),
		LabelPressure: float64(s.Environment.DHT11.Pressure) / float64(physic.KiloPascal),

		LabelVoltage: float64(s.Power.Voltage) / float64(physic.Volt),
		LabelCurrent: float64(s.Power.Current) / float64(physic.Ampere),
		LabelPower:   s.watts(),
		LabelEnergy:  s.Power.Energy,
	}
}

// TrendPower is the power output as displayed, in watts.
func (s Snapshot) TrendPower() float64 {
	return round1(s.watts())
}

// TrendTemperature is the DHT11 temperature as displayed, in °C.
func (s Snapshot) TrendTemperature() float64 {
	if s.IsZero() {
		return 0
	}
	return round1(s.Environment.DHT11.Temperature.Celsius())
}

func (s Snapshot) humidity() float64 {
	return float64(s.Environment.DHT11.Humidity) / float64(physic.PercentRH)
}

func (s Snapshot) watts() float64 {
	return float64(s.Power.Power) / float64(physic.Watt)
}

// Categories formats the snapshot into the four dashboard cards.
func (s Snapshot) Categories() []Category {
	if s.IsZero() {
		return initialCategories()
	}
	v := s.Values()
	return []Category{
		{
			Key: CategoryOrientation, Title: "Gyroscope & Acceleration", Color: "#1a73e8",
			Readings: []Reading{
				{LabelXAxis, fmt.Sprintf("%.2f°", v[LabelXAxis])},
				{LabelYAxis, fmt.Sprintf("%.2f°", v[LabelYAxis])},
				{LabelZAxis, fmt.Sprintf("%.2f°", v[LabelZAxis])},
				{LabelAcceleration, fmt.Sprintf("%.2f m/s²", v[LabelAcceleration])},
			},
		},
		{
			Key: CategoryVibration, Title: "Vibration Status", Color: "#4caf50",
			Readings: []Reading{
				{LabelStatus, string(s.Vibration.Status)},
				{LabelLevel, fmt.Sprintf("%.1f%%", v[LabelLevel])},
				{LabelFrequency, fmt.Sprintf("%.1f Hz", v[LabelFrequency])},
				{LabelAmplitude, fmt.Sprintf("%.2f mm", v[LabelAmplitude])},
			},
		},
		{
			Key: CategoryEnvironment, Title: "Environmental Conditions", Color: "#dc3545",
			Readings: []Reading{
				{LabelHumidity, fmt.Sprintf("%.1f%%", v[LabelHumidity])},
				{LabelTempDHT, fmt.Sprintf("%.1f°C", v[LabelTempDHT])},
				{LabelTempLM35, fmt.Sprintf("%.1f°C", v[LabelTempLM35])},
				{LabelPressure, fmt.Sprintf("%.1f kPa", v[LabelPressure])},
			},
		},
		{
			Key: CategoryPower, Title: "Power Metrics", Color: "#ff9800",
			Readings: []Reading{
				{LabelVoltage, fmt.Sprintf("%.1fV", v[LabelVoltage])},
				{LabelCurrent, fmt.Sprintf("%.2fA", v[LabelCurrent])},
				{LabelPower, fmt.Sprintf("%.1fW", v[LabelPower])},
				{LabelEnergy, fmt.Sprintf("%.1fkWh", v[LabelEnergy])},
			},
		},
	}
}

func initialCategories() []Category {
	return []Category{
		{
			Key: CategoryOrientation, Title: "Gyroscope & Acceleration", Color: "#1a73e8",
			Readings: []Reading{
				{LabelXAxis, "0°"}, {LabelYAxis, "0°"}, {LabelZAxis, "0°"}, {LabelAcceleration, "0 m/s²"},
			},
		},
		{
			Key: CategoryVibration, Title: "Vibration Status", Color: "#4caf50",
			Readings: []Reading{
				{LabelStatus, string(VibrationNormal)}, {LabelLevel, "0%"}, {LabelFrequency, "0 Hz"}, {LabelAmplitude, "0 mm"},
			},
		},
		{
			Key: CategoryEnvironment, Title: "Environmental Conditions", Color: "#dc3545",
			Readings: []Reading{
				{LabelHumidity, "0%"}, {LabelTempDHT, "0°C"}, {LabelTempLM35, "0°C"}, {LabelPressure, "0 kPa"},
			},
		},
		{
			Key: CategoryPower, Title: "Power Metrics", Color: "#ff9800",
			Readings: []Reading{
				{LabelVoltage, "0V"}, {LabelCurrent, "0A"}, {LabelPower, "0W"}, {LabelEnergy, "0kWh"},
			},
		},
	}
}

type snapshotJSON struct {
	Taken  time.Time          `json:"taken"`
	Status VibrationStatus    `json:"status"`
	Values map[string]float64 `json:"values"`
}

// MarshalJSON encodes the snapshot as its numeric values plus the vibration
// status.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return json.Marshal(snapshotJSON{Status: VibrationNormal, Values: map[string]float64{}})
	}
	return json.Marshal(snapshotJSON{
		Taken:  s.Taken,
		Status: s.Vibration.Status,
		Values: s.Values(),
	})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// generate draws every field of a snapshot from ranges.
func generate(rng *rand.Rand, ranges Ranges, now time.Time) Snapshot {
	draw := func(label string) float64 {
		return ranges[label].draw(rng)
	}

	s := Snapshot{Taken: now}

	s.Orientation = Orientation{
		X:            draw(LabelXAxis),
		Y:            draw(LabelYAxis),
		Z:            draw(LabelZAxis),
		Acceleration: draw(LabelAcceleration),
	}

	status := VibrationNormal
	if rng.Float64() > 0.7 {
		status = VibrationHigh
	} else if rng.Float64() > 0.3 {
		status = VibrationMedium
	}
	s.Vibration = Vibration{
		Status:    status,
		Level:     draw(LabelLevel),
		Frequency: physic.Frequency(draw(LabelFrequency) * float64(physic.Hertz)),
		Amplitude: draw(LabelAmplitude),
	}

	s.Environment = Environment{
		DHT11: physic.Env{
			Temperature: celsius(draw(LabelTempDHT)),
			Pressure:    physic.Pressure(draw(LabelPressure) * float64(physic.KiloPascal)),
			Humidity:    physic.RelativeHumidity(draw(LabelHumidity) * float64(physic.PercentRH)),
		},
		LM35: celsius(draw(LabelTempLM35)),
	}

	s.Power = Power{
		Voltage: physic.ElectricPotential(draw(LabelVoltage) * float64(physic.Volt)),
		Current: physic.ElectricCurrent(draw(LabelCurrent) * float64(physic.Ampere)),
		Power:   physic.Power(draw(LabelPower) * float64(physic.Watt)),
		Energy:  draw(LabelEnergy),
	}
	return s
}

func celsius(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Kelvin))
}
