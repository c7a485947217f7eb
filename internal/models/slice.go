package models

import (
	"time"

	"mrifractal/pkg/boxcount"
)

// Slice represents a single decoded MRI slice with metadata
type Slice struct {
	// Filename is the original filename of the slice
	Filename string

	// Index is the position of this slice in the loaded sequence
	Index int

	// Title is a human readable label, taken from the DICOM series
	// description when present and the file name otherwise
	Title string

	// Format is the decoder that produced the slice ("dicom", "png", ...)
	Format string

	// Width and Height are the slice dimensions in pixels
	Width  int
	Height int

	// Pixels holds the intensity samples in row-major order
	Pixels []float64
}

// NewSlice allocates a zeroed width x height slice
func NewSlice(filename string, width, height int) *Slice {
	return &Slice{
		Filename: filename,
		Title:    filename,
		Width:    width,
		Height:   height,
		Pixels:   make([]float64, width*height),
	}
}

// Image returns the slice as an input to the box-counting estimator
func (s *Slice) Image() boxcount.Image {
	return boxcount.NewGrid(s.Width, s.Height, s.Pixels)
}

// IntensityRange returns the smallest and largest sample
func (s *Slice) IntensityRange() (min, max float64) {
	if len(s.Pixels) == 0 {
		return 0, 0
	}
	min, max = s.Pixels[0], s.Pixels[0]
	for _, v := range s.Pixels {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// SliceResult is the outcome of estimating the dimension of one slice.
// Exactly one of Result and Err is set.
type SliceResult struct {
	Slice   *Slice
	Result  *boxcount.Result
	Err     error
	Elapsed time.Duration
}
