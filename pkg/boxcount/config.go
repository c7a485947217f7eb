package boxcount

// Config controls a box-counting run.
type Config struct {
	// MaxBoxDivisor sets the largest box size to max(width, height) / MaxBoxDivisor.
	MaxBoxDivisor int

	// MinBoxSize is the smallest box size scanned.
	MinBoxSize int

	// NumberOfOffsetSets is the number of grid shifts tried per axis for
	// each box size. 1 means a single, unshifted grid.
	NumberOfOffsetSets int

	// ConsiderNoiseFloor measures each cell's height from the global image
	// minimum instead of the cell minimum.
	ConsiderNoiseFloor bool

	// Workers bounds the number of box sizes scanned concurrently.
	// 0 uses runtime.NumCPU().
	Workers int
}

// DefaultConfig returns divisor 4, minimum box 2, one offset set and the
// noise floor enabled.
func DefaultConfig() Config {
	return Config{
		MaxBoxDivisor:      4,
		MinBoxSize:         2,
		NumberOfOffsetSets: 1,
		ConsiderNoiseFloor: true,
	}
}

// Validate rejects configurations that cannot drive a scan.
func (c Config) Validate() error {
	if c.NumberOfOffsetSets < 1 {
		return &InvalidConfigError{Field: "NumberOfOffsetSets", Value: c.NumberOfOffsetSets, Reason: "must be at least 1"}
	}
	if c.MaxBoxDivisor < 1 {
		return &InvalidConfigError{Field: "MaxBoxDivisor", Value: c.MaxBoxDivisor, Reason: "must be at least 1"}
	}
	if c.MinBoxSize < 1 {
		return &InvalidConfigError{Field: "MinBoxSize", Value: c.MinBoxSize, Reason: "must be at least 1"}
	}
	if c.Workers < 0 {
		return &InvalidConfigError{Field: "Workers", Value: c.Workers, Reason: "must not be negative"}
	}
	return nil
}

// MaxBoxSize returns the largest box size scanned for a width x height image.
func (c Config) MaxBoxSize(width, height int) int {
	if width > height {
		return width / c.MaxBoxDivisor
	}
	return height / c.MaxBoxDivisor
}
