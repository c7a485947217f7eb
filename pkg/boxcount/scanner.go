package boxcount

import (
	"context"
	"math"
	"runtime"
	"sync"
)

// SeriesPoint is the best (minimal) cover count found for one box size.
type SeriesPoint struct {
	BoxSize   int
	BestCount int
}

// Scan computes the box-count series of img, one point per box size from
// cfg.MaxBoxSize down to cfg.MinBoxSize.
func Scan(img Image, cfg Config) ([]SeriesPoint, error) {
	return ScanContext(context.Background(), img, cfg)
}

// ScanContext is Scan with cancellation. The context is checked before
// each box size is started.
func ScanContext(ctx context.Context, img Image, cfg Config) ([]SeriesPoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	width, height := img.Width(), img.Height()
	if width <= 0 || height <= 0 {
		return nil, &EmptyImageError{Width: width, Height: height}
	}

	maxBox := cfg.MaxBoxSize(width, height)
	minBox := cfg.MinBoxSize
	if maxBox < minBox {
		return nil, &DegenerateScanError{MaxBoxSize: maxBox, MinBoxSize: minBox}
	}

	s := &scanner{
		img:    img,
		width:  width,
		height: height,
		sets:   cfg.NumberOfOffsetSets,
		noise:  cfg.ConsiderNoiseFloor,
	}
	s.globalMin, _ = intensityRange(img)

	// Point k holds box size maxBox-k.
	points := make([]SeriesPoint, maxBox-minBox+1)

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(points) {
		workers = len(points)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				boxSize := maxBox - k
				points[k] = SeriesPoint{BoxSize: boxSize, BestCount: s.bestCount(boxSize)}
			}
		}()
	}

	var err error
feed:
	for k := range points {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- k:
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return points, nil
}

// scanner holds the per-run state shared read-only by all workers.
type scanner struct {
	img       Image
	width     int
	height    int
	sets      int
	noise     bool
	globalMin float64
}

// bestCount returns the minimal cover count of boxSize over all grid
// offset trials.
func (s *scanner) bestCount(boxSize int) int {
	increment := boxSize / s.sets
	if increment < 1 {
		increment = 1
	}

	best := math.MaxInt
	for offsetX := 0; offsetX < s.width && offsetX < boxSize; offsetX += increment {
		for offsetY := 0; offsetY < s.height && offsetY < boxSize; offsetY += increment {
			if count := s.countBoxes(boxSize, offsetX, offsetY); count < best {
				best = count
			}
		}
	}
	return best
}

// countBoxes lays a grid of boxSize cells shifted by (-offsetX, -offsetY)
// and sums the number of boxes needed to cover each cell's intensity range.
func (s *scanner) countBoxes(boxSize, offsetX, offsetY int) int {
	count := 0
	size := float64(boxSize)

	for i := 0; i <= s.width+offsetX; i += boxSize {
		x0, x1 := clip(i-offsetX, boxSize, s.width)
		if x0 >= x1 {
			continue
		}
		for j := 0; j <= s.height+offsetY; j += boxSize {
			y0, y1 := clip(j-offsetY, boxSize, s.height)
			if y0 >= y1 {
				continue
			}

			cellMin, cellMax := s.cellRange(x0, x1, y0, y1)
			base := cellMin
			if s.noise {
				base = s.globalMin
			}
			count += 1 + int(math.Floor((cellMax-base+1)/size))
		}
	}
	return count
}

// cellRange returns the intensity range of the half-open region
// [x0,x1) x [y0,y1).
func (s *scanner) cellRange(x0, x1, y0, y1 int) (min, max float64) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for x := x0; x < x1; x++ {
		for y := y0; y < y1; y++ {
			v := s.img.At(x, y)
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

// clip intersects the cell [start, start+size) with [0, limit).
func clip(start, size, limit int) (lo, hi int) {
	lo, hi = start, start+size
	if lo < 0 {
		lo = 0
	}
	if hi > limit {
		hi = limit
	}
	return lo, hi
}
