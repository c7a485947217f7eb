package loader

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"mrifractal/internal/models"
)

// dicomPreambleLen is the length of the preamble preceding the "DICM" magic.
const dicomPreambleLen = 128

func isDICOM(data []byte, name string) bool {
	if len(data) >= dicomPreambleLen+4 && string(data[dicomPreambleLen:dicomPreambleLen+4]) == "DICM" {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".dcm", ".dicom":
		return true
	}
	return false
}

// decodeDICOM reads the first frame of the pixel data. Native frames keep
// their stored sample values as intensity.
func decodeDICOM(data []byte, name string) (*models.Slice, error) {
	dataset, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		return nil, fmt.Errorf("dicom parse: %w", err)
	}

	elem, err := dataset.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("dicom pixel data: %w", err)
	}
	info, ok := elem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok {
		return nil, fmt.Errorf("dicom pixel data has unexpected type %T", elem.Value.GetValue())
	}
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("dicom file has no frames")
	}

	img, err := info.Frames[0].GetImage()
	if err != nil {
		return nil, fmt.Errorf("dicom frame: %w", err)
	}

	slice := imageToSlice(img, name, IntensityGray)
	slice.Format = "dicom"
	if title := dicomTitle(dataset); title != "" {
		slice.Title = title
	}
	return slice, nil
}

// dicomTitle returns the series description, falling back to the patient name.
func dicomTitle(dataset dicom.Dataset) string {
	for _, t := range []tag.Tag{tag.SeriesDescription, tag.PatientName} {
		elem, err := dataset.FindElementByTag(t)
		if err != nil {
			continue
		}
		if values, ok := elem.Value.GetValue().([]string); ok && len(values) > 0 {
			if s := strings.TrimSpace(values[0]); s != "" {
				return s
			}
		}
	}
	return ""
}
