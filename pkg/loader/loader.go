// Package loader decodes MRI slices from DICOM and raster image files into
// intensity grids.
package loader

import (
	"fmt"
	"image"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"mrifractal/internal/models"
)

// Intensity modes for raster images. DICOM slices always use the stored
// sample values.
const (
	IntensityGray      = "gray"
	IntensityLightness = "lightness"
)

// Options controls how files are turned into intensity grids.
type Options struct {
	// Intensity selects how color pixels map to a scalar: IntensityGray
	// (8-bit luma) or IntensityLightness (CIE L* scaled to 0-255).
	Intensity string

	// ROI restricts the slice to a region of interest. The zero rectangle
	// keeps the whole slice.
	ROI image.Rectangle
}

// DefaultOptions returns gray intensity over the whole slice.
func DefaultOptions() Options {
	return Options{Intensity: IntensityGray}
}

func (o Options) validate() error {
	switch o.Intensity {
	case "", IntensityGray, IntensityLightness:
		return nil
	default:
		return fmt.Errorf("unknown intensity mode %q (must be %s or %s)", o.Intensity, IntensityGray, IntensityLightness)
	}
}

// LoadFile decodes a single slice.
func LoadFile(path string, opts Options) (*models.Slice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return decodeBytes(data, filepath.Base(path), opts)
}

// Decode reads a slice from r. name is used for format detection and as
// the default title.
func Decode(r io.Reader, name string, opts Options) (*models.Slice, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return decodeBytes(data, name, opts)
}

func decodeBytes(data []byte, name string, opts Options) (*models.Slice, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var (
		slice *models.Slice
		err   error
	)
	if isDICOM(data, name) {
		slice, err = decodeDICOM(data, name)
	} else {
		slice, err = decodeRaster(data, name, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	if !opts.ROI.Empty() {
		slice, err = crop(slice, opts.ROI)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return slice, nil
}

// LoadDir loads every decodable file under dir, ordered by the number in
// the file name. Files that fail to decode are skipped with a warning.
func LoadDir(dir string, opts Options) ([]*models.Slice, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && !strings.HasPrefix(d.Name(), ".") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	// Numbered slices keep their acquisition order; ties fall back to the path.
	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := extractNumber(files[i]), extractNumber(files[j])
		if ni != nj {
			return ni < nj
		}
		return files[i] < files[j]
	})

	var slices []*models.Slice
	for _, path := range files {
		slice, err := LoadFile(path, opts)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			continue
		}
		slices = append(slices, slice)
	}

	if len(slices) == 0 {
		return nil, fmt.Errorf("no decodable images found in %s", dir)
	}
	log.Printf("Read %d slices from %s", len(slices), dir)
	return slices, nil
}

// LoadPaths loads files and directories in order and numbers the slices
// sequentially.
func LoadPaths(paths []string, opts Options) ([]*models.Slice, error) {
	var all []*models.Slice
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if info.IsDir() {
			slices, err := LoadDir(path, opts)
			if err != nil {
				return nil, err
			}
			all = append(all, slices...)
			continue
		}

		slice, err := LoadFile(path, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, slice)
	}

	for i, s := range all {
		s.Index = i
	}
	return all, nil
}

// extractNumber extracts the digits of the file name as a number
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}

	if digits.Len() > 0 {
		if num, err := strconv.Atoi(digits.String()); err == nil {
			return num
		}
	}
	return 0
}

// crop restricts slice to roi, which must overlap the slice.
func crop(slice *models.Slice, roi image.Rectangle) (*models.Slice, error) {
	bounds := image.Rect(0, 0, slice.Width, slice.Height)
	r := roi.Intersect(bounds)
	if r.Empty() {
		return nil, fmt.Errorf("region of interest %v lies outside the %dx%d slice", roi, slice.Width, slice.Height)
	}

	out := models.NewSlice(slice.Filename, r.Dx(), r.Dy())
	out.Title = slice.Title
	out.Format = slice.Format
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := slice.Pixels[y*slice.Width+r.Min.X : y*slice.Width+r.Max.X]
		copy(out.Pixels[(y-r.Min.Y)*out.Width:], src)
	}
	return out, nil
}
