package preprocess

import (
	"image"
	"image/color"
	"testing"

	"PanoGuard/pkg/raster"

	"github.com/stretchr/testify/require"
)

func flatRGB(t *testing.T, w, h int, r, g, b byte) *raster.Image {
	t.Helper()
	img, err := raster.New(w, h, 3)
	require.NoError(t, err)
	for i := 0; i < w*h; i++ {
		img.Pix[i*3], img.Pix[i*3+1], img.Pix[i*3+2] = r, g, b
	}
	return img
}

func TestPreprocessLengthAndRange(t *testing.T) {
	cfg := ImageNet224()

	src := image.NewRGBA(image.Rect(0, 0, 640, 311))
	for y := 0; y < 311; y++ {
		for x := 0; x < 640; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}

	out, err := Preprocess(raster.FromImage(src), cfg)
	require.NoError(t, err)
	require.Len(t, out, 3*224*224)

	for _, v := range out {
		require.GreaterOrEqual(t, v, float32(-2.2))
		require.LessOrEqual(t, v, float32(2.7))
	}
}

func TestPreprocessFlatColorIsConstantPerChannel(t *testing.T) {
	for _, cfg := range []Config{ImageNet224(), Inception299()} {
		out, err := Preprocess(flatRGB(t, 97, 53, 128, 128, 128), cfg)
		require.NoError(t, err)

		plane := cfg.Width * cfg.Height
		for c := 0; c < 3; c++ {
			want := (float32(128)/255.0 - cfg.Mean[c]) / cfg.Std[c]
			for i := 0; i < plane; i++ {
				require.Equal(t, want, out[c*plane+i])
			}
		}
	}
}

func TestPreprocessPlanarOrder(t *testing.T) {
	cfg := Config{
		Width:    2,
		Height:   2,
		Channels: 3,
		Mean:     []float32{0, 0, 0},
		Std:      []float32{1, 1, 1},
		Layout:   LayoutPlanarCHW,
	}

	img, err := raster.New(2, 2, 3)
	require.NoError(t, err)
	copy(img.Pix, []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 255, 255, 255,
	})

	out, err := Preprocess(img, cfg)
	require.NoError(t, err)
	require.Equal(t, []float32{
		1, 0, 0, 1, // R plane
		0, 1, 0, 1, // G plane
		0, 0, 1, 1, // B plane
	}, out)
}

func TestPreprocessChannels(t *testing.T) {
	cfg := Config{Width: 1, Height: 1, Channels: 3, Mean: []float32{0, 0, 0}, Std: []float32{1, 1, 1}}

	t.Run("alpha dropped", func(t *testing.T) {
		img := &raster.Image{Width: 1, Height: 1, Channels: 4, Pix: []byte{255, 0, 255, 7}}
		out, err := Preprocess(img, cfg)
		require.NoError(t, err)
		require.Equal(t, []float32{1, 0, 1}, out)
	})

	t.Run("gray replicated", func(t *testing.T) {
		img := &raster.Image{Width: 1, Height: 1, Channels: 1, Pix: []byte{255}}
		out, err := Preprocess(img, cfg)
		require.NoError(t, err)
		require.Equal(t, []float32{1, 1, 1}, out)
	})

	t.Run("rgb into single channel model fails", func(t *testing.T) {
		gray := Config{Width: 1, Height: 1, Channels: 1, Mean: []float32{0}, Std: []float32{1}}
		img := &raster.Image{Width: 1, Height: 1, Channels: 3, Pix: []byte{1, 2, 3}}
		_, err := Preprocess(img, gray)
		require.ErrorIs(t, err, ErrChannelMismatch)
	})
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, ImageNet224().Validate())
	require.NoError(t, Inception299().Validate())
	require.Equal(t, []int64{1, 3, 299, 299}, Inception299().Shape())

	bad := ImageNet224()
	bad.Std = []float32{0.2, 0, 0.2}
	require.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = ImageNet224()
	bad.Mean = bad.Mean[:2]
	require.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	_, err := Preprocess(&raster.Image{Width: 1, Height: 1, Channels: 3, Pix: []byte{1}}, ImageNet224())
	require.ErrorIs(t, err, raster.ErrPixelLength)
}
