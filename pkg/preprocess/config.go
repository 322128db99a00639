package preprocess

import (
	"errors"
	"fmt"
)

const LayoutPlanarCHW = "planar-CHW"

var ErrInvalidConfig = errors.New("preprocess: invalid config")

// Config describes the input geometry and normalisation a model was trained
// with. It belongs to the model, not to the process.
type Config struct {
	Width    int
	Height   int
	Channels int
	Mean     []float32
	Std      []float32
	Layout   string
}

// ImageNet224 is the 224x224 variant with ImageNet statistics.
func ImageNet224() Config {
	return Config{
		Width:    224,
		Height:   224,
		Channels: 3,
		Mean:     []float32{0.485, 0.456, 0.406},
		Std:      []float32{0.229, 0.224, 0.225},
		Layout:   LayoutPlanarCHW,
	}
}

// Inception299 is the 299x299 variant, scaling inputs to [-1, 1].
func Inception299() Config {
	return Config{
		Width:    299,
		Height:   299,
		Channels: 3,
		Mean:     []float32{0.5, 0.5, 0.5},
		Std:      []float32{0.5, 0.5, 0.5},
		Layout:   LayoutPlanarCHW,
	}
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Channels != 1 && c.Channels != 3 {
		return fmt.Errorf("%w: channels %d", ErrInvalidConfig, c.Channels)
	}
	if len(c.Mean) != c.Channels || len(c.Std) != c.Channels {
		return fmt.Errorf("%w: mean/std must have %d entries", ErrInvalidConfig, c.Channels)
	}
	for i, s := range c.Std {
		if s == 0 {
			return fmt.Errorf("%w: std[%d] is zero", ErrInvalidConfig, i)
		}
	}
	if c.Layout != "" && c.Layout != LayoutPlanarCHW {
		return fmt.Errorf("%w: layout %q", ErrInvalidConfig, c.Layout)
	}
	return nil
}

// Len is the number of float32 values Preprocess produces.
func (c Config) Len() int {
	return c.Channels * c.Height * c.Width
}

// Shape is the NCHW tensor shape with a batch of one.
func (c Config) Shape() []int64 {
	return []int64{1, int64(c.Channels), int64(c.Height), int64(c.Width)}
}
