package boxcount

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FitResult is the least-squares line Y = Intercept + Slope*X through the
// log-log series. Slope is the fractal dimension.
type FitResult struct {
	Intercept float64
	Slope     float64

	// RSquared is the coefficient of determination of the fit. It is NaN
	// when every Y is identical.
	RSquared float64
}

// Dimension formats the slope with four decimals, as reported to users.
func (f FitResult) Dimension() string {
	return fmt.Sprintf("%.4f", f.Slope)
}

// At evaluates the fitted line at x.
func (f FitResult) At(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// Fit fits a straight line to points by ordinary least squares.
func Fit(points []LogLogPoint) (FitResult, error) {
	if len(points) < 2 {
		return FitResult{}, &DegenerateFitError{Points: len(points), Reason: "need at least 2 points"}
	}

	xs, ys := Coordinates(points)
	if floats.Max(xs) == floats.Min(xs) {
		return FitResult{}, &DegenerateFitError{Points: len(points), Reason: "all x values are identical"}
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	return FitResult{
		Intercept: intercept,
		Slope:     slope,
		RSquared:  stat.RSquared(xs, ys, nil, intercept, slope),
	}, nil
}

// FittedLine samples n evenly spaced points of the fitted line across the
// X range of points, for plotting alongside the series.
func FittedLine(fit FitResult, points []LogLogPoint, n int) []LogLogPoint {
	if len(points) == 0 || n < 2 {
		return nil
	}

	xs, _ := Coordinates(points)
	samples := floats.Span(make([]float64, n), floats.Min(xs), floats.Max(xs))

	line := make([]LogLogPoint, n)
	for i, x := range samples {
		line[i] = LogLogPoint{X: x, Y: fit.At(x)}
	}
	return line
}
