package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	img, err := New(4, 2, 3)
	require.NoError(t, err)
	require.Len(t, img.Pix, 24)
	require.NoError(t, img.Validate())

	img.Pix = img.Pix[:10]
	require.ErrorIs(t, img.Validate(), ErrPixelLength)

	_, err = New(0, 2, 3)
	require.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = New(2, 2, 2)
	require.ErrorIs(t, err, ErrInvalidChannels)
}

func TestFromImage(t *testing.T) {
	t.Run("gray keeps one channel", func(t *testing.T) {
		g := image.NewGray(image.Rect(0, 0, 3, 2))
		g.SetGray(2, 1, color.Gray{Y: 200})

		out := FromImage(g)
		require.Equal(t, 1, out.Channels)
		require.Equal(t, byte(200), out.Pix[1*3+2])
	})

	t.Run("opaque rgba becomes rgb", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 2, 1))
		src.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		src.Set(1, 0, color.RGBA{R: 40, G: 50, B: 60, A: 255})

		out := FromImage(src)
		require.Equal(t, 3, out.Channels)
		require.Equal(t, []byte{10, 20, 30, 40, 50, 60}, out.Pix)
	})

	t.Run("translucent nrgba keeps alpha", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		src.Set(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 4})

		out := FromImage(src)
		require.Equal(t, 4, out.Channels)
		require.Equal(t, []byte{1, 2, 3, 4}, out.Pix)
	})
}

func TestDecodeAndEncode(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 5, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			src.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}

	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, src))

	img, format, err := Decode(pngBuf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "png", format)
	require.Equal(t, 5, img.Width)
	require.Equal(t, 3, img.Height)
	require.NoError(t, img.Validate())

	var jpgBuf bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpgBuf, src, nil))
	img, format, err = Decode(jpgBuf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	require.Equal(t, 3, img.Channels)

	encoded, err := img.PNG()
	require.NoError(t, err)
	back, _, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, img.Width, back.Width)
	require.Equal(t, img.Height, back.Height)

	_, _, err = Decode([]byte("not an image"))
	require.Error(t, err)
}
