package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"mrifractal/internal/models"
	"mrifractal/pkg/boxcount"
)

// linePoints is the number of samples drawn along the fitted line
const linePoints = 100

// margin is the space left around the plot area for the axes and label
const margin = 40

var (
	background = color.RGBA{255, 255, 255, 255}
	axisColor  = color.RGBA{0, 0, 0, 255}
	lineColor  = color.RGBA{200, 30, 30, 255}
	pointColor = color.RGBA{30, 60, 200, 255}
)

// Plotter renders the log-log series of a box-counting run together with
// its fitted line: -ln(box size) on X, ln(box count) on Y.
type Plotter struct {
	width  int
	height int
}

// NewPlotter creates a plotter producing width x height images
func NewPlotter(width, height int) *Plotter {
	return &Plotter{width: width, height: height}
}

// bounds of the data shown in the plot
type plotRange struct {
	xMin, xMax float64
	yMin, yMax float64
}

// Render draws result into a new image
func (p *Plotter) Render(result *boxcount.Result) (*image.RGBA, error) {
	if p.width <= 2*margin || p.height <= 2*margin {
		return nil, fmt.Errorf("plot size %dx%d is too small", p.width, p.height)
	}
	if len(result.LogLog) == 0 {
		return nil, fmt.Errorf("nothing to plot")
	}

	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	line := boxcount.FittedLine(result.Fit, result.LogLog, linePoints)
	r := dataRange(result.LogLog, line)

	p.drawAxes(img)

	// Fitted line, joined sample to sample
	for i := 1; i < len(line); i++ {
		x0, y0 := p.toPixel(r, line[i-1])
		x1, y1 := p.toPixel(r, line[i])
		drawSegment(img, x0, y0, x1, y1, lineColor)
	}

	// Series points as small squares
	for _, pt := range result.LogLog {
		x, y := p.toPixel(r, pt)
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				img.SetRGBA(x+dx, y+dy, pointColor)
			}
		}
	}

	p.drawLabel(img, fmt.Sprintf("Slope: %s", result.Fit.Dimension()), margin+10, margin+15)
	p.drawLabel(img, "-log(box size)", p.width/2-40, p.height-10)
	p.drawLabel(img, "log(box count)", 4, margin-10)

	return img, nil
}

// SavePlot renders result and writes it to filename. The format follows
// the file extension.
func (p *Plotter) SavePlot(result *boxcount.Result, filename string) error {
	img, err := p.Render(result)
	if err != nil {
		return err
	}
	return imaging.Save(img, filename)
}

func dataRange(points, line []boxcount.LogLogPoint) plotRange {
	r := plotRange{
		xMin: math.Inf(1), xMax: math.Inf(-1),
		yMin: math.Inf(1), yMax: math.Inf(-1),
	}
	for _, set := range [][]boxcount.LogLogPoint{points, line} {
		for _, pt := range set {
			r.xMin = math.Min(r.xMin, pt.X)
			r.xMax = math.Max(r.xMax, pt.X)
			r.yMin = math.Min(r.yMin, pt.Y)
			r.yMax = math.Max(r.yMax, pt.Y)
		}
	}
	// A single point or a flat series still needs a non-empty range.
	if r.xMax == r.xMin {
		r.xMin, r.xMax = r.xMin-0.5, r.xMax+0.5
	}
	if r.yMax == r.yMin {
		r.yMin, r.yMax = r.yMin-0.5, r.yMax+0.5
	}
	return r
}

// toPixel maps a data point into the plot area
func (p *Plotter) toPixel(r plotRange, pt boxcount.LogLogPoint) (int, int) {
	plotW := float64(p.width - 2*margin)
	plotH := float64(p.height - 2*margin)
	x := margin + (pt.X-r.xMin)/(r.xMax-r.xMin)*plotW
	y := float64(p.height-margin) - (pt.Y-r.yMin)/(r.yMax-r.yMin)*plotH
	return int(math.Round(x)), int(math.Round(y))
}

func (p *Plotter) drawAxes(img *image.RGBA) {
	bottom := p.height - margin
	for x := margin; x <= p.width-margin; x++ {
		img.SetRGBA(x, bottom, axisColor)
	}
	for y := margin; y <= bottom; y++ {
		img.SetRGBA(margin, y, axisColor)
	}
}

func (p *Plotter) drawLabel(img *image.RGBA, text string, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(axisColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// drawSegment draws a straight line with Bresenham's algorithm
func drawSegment(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// SliceImage renders a slice as a 16-bit grayscale image, stretching its
// intensity range to the full scale
func SliceImage(slice *models.Slice) image.Image {
	img := image.NewGray16(image.Rect(0, 0, slice.Width, slice.Height))
	min, max := slice.IntensityRange()
	scale := 0.0
	if max > min {
		scale = 65535 / (max - min)
	}

	for y := 0; y < slice.Height; y++ {
		for x := 0; x < slice.Width; x++ {
			v := (slice.Pixels[y*slice.Width+x] - min) * scale
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Max(0, math.Min(65535, v)))})
		}
	}
	return img
}

// SaveSlice writes the slice preview to filename
func SaveSlice(slice *models.Slice, filename string) error {
	return imaging.Save(SliceImage(slice), filename)
}
