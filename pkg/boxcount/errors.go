package boxcount

import "fmt"

// EmptyImageError is returned when the image has no samples.
type EmptyImageError struct {
	Width  int
	Height int
}

func (e *EmptyImageError) Error() string {
	return fmt.Sprintf("empty image: %dx%d", e.Width, e.Height)
}

// DegenerateScanError is returned when no box size lies in
// [MinBoxSize, MaxBoxSize], so the scan produced no points.
type DegenerateScanError struct {
	MaxBoxSize int
	MinBoxSize int
}

func (e *DegenerateScanError) Error() string {
	return fmt.Sprintf("no box sizes to scan: max box size %d is below min box size %d",
		e.MaxBoxSize, e.MinBoxSize)
}

// DegenerateFitError is returned when a straight line cannot be fitted
// to the log-log series.
type DegenerateFitError struct {
	Points int
	Reason string
}

func (e *DegenerateFitError) Error() string {
	return fmt.Sprintf("cannot fit line to %d points: %s", e.Points, e.Reason)
}

// InvalidConfigError is returned by Config.Validate.
type InvalidConfigError struct {
	Field  string
	Value  int
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s=%d: %s", e.Field, e.Value, e.Reason)
}
