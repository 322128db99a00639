// Package preprocess turns a decoded raster into the normalised planar tensor
// the positioning classifier consumes.
package preprocess

import (
	"errors"
	"fmt"

	"PanoGuard/pkg/raster"

	"github.com/nfnt/resize"
)

var ErrChannelMismatch = errors.New("preprocess: channel count mismatch")

// Preprocess resizes img to the configured size (stretching, no aspect
// preservation), drops alpha and writes (v/255 - mean[c]) / std[c] at
// index c*H*W + y*W + x.
func Preprocess(img *raster.Image, cfg Config) ([]float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("preprocess: nil image")
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	resized := Resize(img, cfg.Width, cfg.Height)

	pix, channels, err := selectChannels(resized, cfg.Channels)
	if err != nil {
		return nil, err
	}

	w, h := cfg.Width, cfg.Height
	plane := w * h
	out := make([]float32, cfg.Len())

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := (y*w + x) * channels
			dst := y*w + x
			for c := 0; c < channels; c++ {
				out[c*plane+dst] = normalize(pix[src+c], cfg.Mean[c], cfg.Std[c])
			}
		}
	}

	return out, nil
}

func normalize(v byte, mean, std float32) float32 {
	return (float32(v)/255.0 - mean) / std
}

// Resize stretches img to exactly width x height with bilinear sampling.
// Same-size input is returned as is.
func Resize(img *raster.Image, width, height int) *raster.Image {
	if img.Width == width && img.Height == height {
		return img
	}
	out := resize.Resize(uint(width), uint(height), img.ToImage(), resize.Bilinear)
	return raster.FromImage(out)
}

// selectChannels returns an interleaved buffer with exactly want channels:
// alpha is dropped and gray is replicated when three are wanted.
func selectChannels(img *raster.Image, want int) ([]byte, int, error) {
	switch {
	case img.Channels == want:
		return img.Pix, want, nil
	case img.Channels == 4 && want == 3:
		n := img.Width * img.Height
		out := make([]byte, n*3)
		for i := 0; i < n; i++ {
			copy(out[i*3:i*3+3], img.Pix[i*4:i*4+3])
		}
		return out, 3, nil
	case img.Channels == 1 && want == 3:
		n := img.Width * img.Height
		out := make([]byte, n*3)
		for i, v := range img.Pix {
			out[i*3], out[i*3+1], out[i*3+2] = v, v, v
		}
		return out, 3, nil
	default:
		return nil, 0, fmt.Errorf("%w: image has %d, model wants %d", ErrChannelMismatch, img.Channels, want)
	}
}
