package boxcount

import (
	"fmt"
	"math"
)

// LogLogPoint is a series point in log-log space:
// X = -ln(boxSize/width), Y = ln(bestCount).
type LogLogPoint struct {
	X float64
	Y float64
}

// Transform maps the scan series into log-log space, keeping its order.
func Transform(points []SeriesPoint, width int) ([]LogLogPoint, error) {
	if width <= 0 {
		return nil, fmt.Errorf("transform: width must be positive, got %d", width)
	}

	out := make([]LogLogPoint, len(points))
	for i, p := range points {
		if p.BoxSize <= 0 || p.BestCount <= 0 {
			return nil, fmt.Errorf("transform: point %d has box size %d and count %d, both must be positive",
				i, p.BoxSize, p.BestCount)
		}
		out[i] = LogLogPoint{
			X: -math.Log(float64(p.BoxSize) / float64(width)),
			Y: math.Log(float64(p.BestCount)),
		}
	}
	return out, nil
}

// Coordinates splits the series into separate X and Y slices.
func Coordinates(points []LogLogPoint) (xs, ys []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return xs, ys
}
