package dicom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func grayMeta(rows, cols int) Metadata {
	return Metadata{
		Rows:            rows,
		Columns:         cols,
		SamplesPerPixel: 1,
		BitsAllocated:   16,
		BitsStored:      16,
		RescaleSlope:    1,
		Photometric:     Monochrome2,
	}
}

func TestWindowApply(t *testing.T) {
	w := Window{Center: 100, Width: 200}

	require.Equal(t, uint8(0), w.Apply(0))
	require.Equal(t, uint8(0), w.Apply(-50))
	require.Equal(t, uint8(255), w.Apply(200))
	require.Equal(t, uint8(255), w.Apply(1000))
	require.Equal(t, uint8(128), w.Apply(100))
	require.Equal(t, uint8(64), w.Apply(50))
}

func TestWindowCenterMonochrome(t *testing.T) {
	meta := grayMeta(1, 1)
	meta.WindowCenter = f64(1000)
	meta.WindowWidth = f64(400)

	img, err := RenderGray([]int{1000}, meta)
	require.NoError(t, err)
	mid := img.Pix[0]
	require.Contains(t, []uint8{127, 128}, mid)

	meta.Photometric = Monochrome1
	img, err = RenderGray([]int{1000}, meta)
	require.NoError(t, err)
	require.Equal(t, 255-mid, img.Pix[0])
}

func TestRescaleAndSignedness(t *testing.T) {
	meta := grayMeta(1, 3)
	meta.PixelRepresentation = 1
	meta.RescaleSlope = 2
	meta.RescaleIntercept = -10

	values := Rescale([]int{0xFFFF, 1, 0x8000}, meta)
	require.Equal(t, []float64{-12, -8, -65546}, values)

	meta.PixelRepresentation = 0
	values = Rescale([]int{0xFFFF}, meta)
	require.Equal(t, []float64{2*65535 - 10}, values)

	meta.BitsStored = 12
	meta.PixelRepresentation = 1
	meta.RescaleSlope = 1
	meta.RescaleIntercept = 0
	require.Equal(t, []float64{-1, 2047}, Rescale([]int{0x0FFF, 0x07FF}, meta))

	eight := Metadata{BitsAllocated: 8, BitsStored: 8, PixelRepresentation: 1, RescaleSlope: 1}
	require.Equal(t, []float64{-128, 127}, Rescale([]int{0x80, 0x7F}, eight))
}

func TestDerivedWindow(t *testing.T) {
	meta := grayMeta(1, 3)

	img, err := RenderGray([]int{100, 150, 200}, meta)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 128, 255}, img.Pix)

	w := WindowFor([]float64{5, 5, 5}, meta)
	require.Equal(t, Window{Center: 5, Width: 1}, w)

	meta.WindowCenter = f64(10)
	meta.WindowWidth = f64(0.2)
	require.Equal(t, Window{Center: 10, Width: 1}, WindowFor(nil, meta))
}

func TestRenderGuards(t *testing.T) {
	meta := grayMeta(2, 2)
	_, err := RenderGray([]int{1, 2, 3}, meta)
	reason, ok := ReasonOf(err)
	require.True(t, ok)
	require.Equal(t, ReasonMalformed, reason)

	meta.SamplesPerPixel = 2
	_, err = Render([]int{1, 2, 3, 4, 5, 6, 7, 8}, meta)
	reason, _ = ReasonOf(err)
	require.Equal(t, ReasonUnsupported, reason)

	color := Metadata{Rows: 1, Columns: 1, SamplesPerPixel: 3, BitsAllocated: 8}
	img, err := Render([]int{10, 20, 30}, color)
	require.NoError(t, err)
	require.Equal(t, 3, img.Channels)
	require.Equal(t, []byte{10, 20, 30}, img.Pix)
}
