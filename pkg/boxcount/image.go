// Package boxcount estimates the box-counting (fractal) dimension of a 2D
// intensity image. The image is treated as a surface over X and Y with the
// intensity as Z, and is covered with cubes of decreasing size.
package boxcount

import (
	"gonum.org/v1/gonum/mat"
)

// Image is a read-only 2D grid of intensity samples.
// At is only ever called with 0 <= x < Width() and 0 <= y < Height().
type Image interface {
	Width() int
	Height() int
	At(x, y int) float64
}

// Grid is an Image backed by a row-major slice of samples.
type Grid struct {
	width  int
	height int
	pix    []float64
}

// NewGrid wraps pix as a width x height image. pix is not copied.
func NewGrid(width, height int, pix []float64) *Grid {
	return &Grid{width: width, height: height, pix: pix}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

func (g *Grid) At(x, y int) float64 {
	return g.pix[y*g.width+x]
}

// matrixImage adapts a gonum matrix where rows are y and columns are x.
type matrixImage struct {
	m mat.Matrix
}

// FromMatrix returns an Image view over m.
func FromMatrix(m mat.Matrix) Image {
	return matrixImage{m: m}
}

func (mi matrixImage) Width() int {
	_, c := mi.m.Dims()
	return c
}

func (mi matrixImage) Height() int {
	r, _ := mi.m.Dims()
	return r
}

func (mi matrixImage) At(x, y int) float64 {
	return mi.m.At(y, x)
}

// intensityRange returns the minimum and maximum sample of img in one pass.
func intensityRange(img Image) (min, max float64) {
	w, h := img.Width(), img.Height()
	min = img.At(0, 0)
	max = min
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := img.At(x, y)
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return min, max
}
