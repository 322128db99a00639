package dicom

import (
	"fmt"
	"math"

	"PanoGuard/pkg/raster"

	"gonum.org/v1/gonum/floats"
)

// Window is a display window over rescaled sample values.
type Window struct {
	Center float64
	Width  float64
}

func (w Window) bounds() (lo, hi float64) {
	return w.Center - w.Width/2, w.Center + w.Width/2
}

// Apply maps v into [0,255]: at or below the lower bound is 0, at or above
// the upper bound is 255, linear in between and rounded to nearest.
func (w Window) Apply(v float64) uint8 {
	lo, hi := w.bounds()
	switch {
	case v <= lo:
		return 0
	case v >= hi:
		return 255
	}
	return uint8(math.Round((v - lo) / w.Width * 255))
}

// Rescale converts stored samples into modality values. Samples are
// reinterpreted as two's complement when the data is signed.
func Rescale(samples []int, meta Metadata) []float64 {
	bits := meta.BitsStored
	if bits <= 0 || bits > 32 {
		bits = meta.BitsAllocated
	}
	mask := (1 << uint(bits)) - 1
	signBit := 1 << uint(bits-1)

	out := make([]float64, len(samples))
	for i, raw := range samples {
		v := raw & mask
		if meta.Signed() && v >= signBit {
			v -= 1 << uint(bits)
		}
		out[i] = float64(v)*meta.RescaleSlope + meta.RescaleIntercept
	}
	return out
}

// WindowFor returns the declared window or one spanning min..max of values.
// Widths below 1 are clamped to 1.
func WindowFor(values []float64, meta Metadata) Window {
	var w Window
	if meta.WindowCenter != nil && meta.WindowWidth != nil {
		w = Window{Center: *meta.WindowCenter, Width: *meta.WindowWidth}
	} else if len(values) > 0 {
		lo, hi := floats.Min(values), floats.Max(values)
		w = Window{Center: (lo + hi) / 2, Width: hi - lo}
	}
	if w.Width < 1 {
		w.Width = 1
	}
	return w
}

// RenderGray windows single-sample values to an 8-bit raster and inverts
// MONOCHROME1 so that high values are bright.
func RenderGray(samples []int, meta Metadata) (*raster.Image, error) {
	if meta.Rows <= 0 || meta.Columns <= 0 {
		return nil, newDecodeError(ReasonMalformed, "render", fmt.Errorf("invalid size %dx%d", meta.Columns, meta.Rows))
	}
	n := meta.Rows * meta.Columns
	if len(samples) < n {
		return nil, newDecodeError(ReasonMalformed, "render", fmt.Errorf("got %d samples, want %d", len(samples), n))
	}

	values := Rescale(samples[:n], meta)
	win := WindowFor(values, meta)
	invert := meta.Photometric == Monochrome1

	img, err := raster.New(meta.Columns, meta.Rows, 1)
	if err != nil {
		return nil, newDecodeError(ReasonMalformed, "render", err)
	}
	for i, v := range values {
		p := win.Apply(v)
		if invert {
			p = 255 - p
		}
		img.Pix[i] = p
	}
	return img, nil
}

// RenderColor copies 8-bit three-sample pixels into an RGB raster.
func RenderColor(samples []int, meta Metadata) (*raster.Image, error) {
	n := meta.Rows * meta.Columns * 3
	if meta.Rows <= 0 || meta.Columns <= 0 || len(samples) < n {
		return nil, newDecodeError(ReasonMalformed, "render", fmt.Errorf("got %d samples, want %d", len(samples), n))
	}
	img, err := raster.New(meta.Columns, meta.Rows, 3)
	if err != nil {
		return nil, newDecodeError(ReasonMalformed, "render", err)
	}
	shift := 0
	if meta.BitsAllocated > 8 {
		shift = meta.BitsAllocated - 8
	}
	for i := 0; i < n; i++ {
		img.Pix[i] = uint8(samples[i] >> uint(shift))
	}
	return img, nil
}

// Render picks the gray or color renderer by samples per pixel.
func Render(samples []int, meta Metadata) (*raster.Image, error) {
	switch meta.SamplesPerPixel {
	case 1:
		return RenderGray(samples, meta)
	case 3:
		return RenderColor(samples, meta)
	default:
		return nil, newDecodeError(ReasonUnsupported, "render", fmt.Errorf("samples per pixel %d", meta.SamplesPerPixel))
	}
}
