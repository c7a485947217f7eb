package models

import "testing"

func TestNewSlice(t *testing.T) {
	s := NewSlice("brain_001.dcm", 4, 3)

	if s.Width != 4 || s.Height != 3 {
		t.Errorf("Expected 4x3, got %dx%d", s.Width, s.Height)
	}
	if len(s.Pixels) != 12 {
		t.Errorf("Expected 12 pixels, got %d", len(s.Pixels))
	}
	if s.Title != "brain_001.dcm" {
		t.Errorf("Expected title to default to the filename, got %q", s.Title)
	}
}

func TestSliceImage(t *testing.T) {
	s := NewSlice("x", 3, 2)
	s.Pixels[1*3+2] = 7

	img := s.Image()
	if img.Width() != 3 || img.Height() != 2 {
		t.Fatalf("Expected 3x2 image, got %dx%d", img.Width(), img.Height())
	}
	if img.At(2, 1) != 7 {
		t.Errorf("Expected At(2, 1) = 7, got %f", img.At(2, 1))
	}
}

func TestIntensityRange(t *testing.T) {
	s := NewSlice("x", 2, 2)
	copy(s.Pixels, []float64{3, -1, 8, 2})

	min, max := s.IntensityRange()
	if min != -1 || max != 8 {
		t.Errorf("Expected range [-1, 8], got [%f, %f]", min, max)
	}

	empty := NewSlice("empty", 0, 0)
	if min, max := empty.IntensityRange(); min != 0 || max != 0 {
		t.Errorf("Expected [0, 0] for empty slice, got [%f, %f]", min, max)
	}
}
