package loader

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"mrifractal/internal/models"
)

// decodeRaster decodes any registered image format, applying EXIF orientation.
func decodeRaster(data []byte, name string, opts Options) (*models.Slice, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	slice := imageToSlice(img, name, opts.Intensity)
	slice.Format = format
	return slice, nil
}

// imageToSlice converts img to an intensity grid. Gray images keep their
// native sample range (0-255 or 0-65535); color images are reduced with
// the given intensity mode.
func imageToSlice(img image.Image, name, intensity string) *models.Slice {
	bounds := img.Bounds()
	slice := models.NewSlice(name, bounds.Dx(), bounds.Dy())

	sample := intensityFunc(img, intensity)
	for y := 0; y < slice.Height; y++ {
		for x := 0; x < slice.Width; x++ {
			slice.Pixels[y*slice.Width+x] = sample(bounds.Min.X+x, bounds.Min.Y+y)
		}
	}
	return slice
}

func intensityFunc(img image.Image, intensity string) func(x, y int) float64 {
	if intensity == IntensityLightness {
		return func(x, y int) float64 {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				return 0
			}
			l, _, _ := c.Lab()
			return l * 255
		}
	}

	switch g := img.(type) {
	case *image.Gray16:
		return func(x, y int) float64 { return float64(g.Gray16At(x, y).Y) }
	case *image.Gray:
		return func(x, y int) float64 { return float64(g.GrayAt(x, y).Y) }
	default:
		return func(x, y int) float64 {
			return float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
		}
	}
}
