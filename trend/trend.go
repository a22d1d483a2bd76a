// Package trend keeps the rolling power and temperature window drawn on the
// dashboard chart.
package trend

// Capacity is the number of points the dashboard chart shows.
const Capacity = 10

// LabelLayout formats a point's time label.
const LabelLayout = "15:04:05"

// Point is one tick on the trend chart.
type Point struct {
	Label       string  `json:"label"`
	Power       float64 `json:"power"`
	Temperature float64 `json:"temperature"`
}

// Series is a fixed-length window of the most recent points, oldest first.
// Appending past capacity drops the oldest point.
//
// A Series is not safe for concurrent use.
type Series struct {
	capacity int
	points   []Point
}

// New returns an empty series holding at most capacity points. A
// non-positive capacity means Capacity.
func New(capacity int) *Series {
	if capacity <= 0 {
		capacity = Capacity
	}
	return &Series{capacity: capacity, points: make([]Point, 0, capacity)}
}

// Append adds p as the newest point.
func (s *Series) Append(p Point) {
	if len(s.points) == s.capacity {
		copy(s.points, s.points[1:])
		s.points = s.points[:len(s.points)-1]
	}
	s.points = append(s.points, p)
}

// Len returns the number of points held.
func (s *Series) Len() int {
	return len(s.points)
}

// Cap returns the maximum number of points held.
func (s *Series) Cap() int {
	return s.capacity
}

// Points returns a copy of the window, oldest first.
func (s *Series) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Labels returns the time labels, oldest first.
func (s *Series) Labels() []string {
	out := make([]string, len(s.points))
	for i, p := range s.points {
		out[i] = p.Label
	}
	return out
}

// Power returns the power values, oldest first.
func (s *Series) Power() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Power
	}
	return out
}

// Temperature returns the temperature values, oldest first.
func (s *Series) Temperature() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Temperature
	}
	return out
}
