// Package raster holds decoded pixel buffers in interleaved row-major order
// and converts between them and the standard image types.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrInvalidDimensions = errors.New("raster: invalid dimensions")
	ErrInvalidChannels   = errors.New("raster: channels must be 1, 3 or 4")
	ErrPixelLength       = errors.New("raster: pixel buffer length mismatch")
)

// Image is an interleaved pixel buffer: Pix[(y*Width+x)*Channels+c].
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

func New(width, height, channels int) (*Image, error) {
	img := &Image{Width: width, Height: height, Channels: channels}
	if err := img.validateShape(); err != nil {
		return nil, err
	}
	img.Pix = make([]byte, width*height*channels)
	return img, nil
}

func (m *Image) Validate() error {
	if err := m.validateShape(); err != nil {
		return err
	}
	if len(m.Pix) != m.Width*m.Height*m.Channels {
		return fmt.Errorf("%w: got %d, want %d", ErrPixelLength, len(m.Pix), m.Width*m.Height*m.Channels)
	}
	return nil
}

func (m *Image) validateShape() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, m.Width, m.Height)
	}
	switch m.Channels {
	case 1, 3, 4:
		return nil
	default:
		return fmt.Errorf("%w: got %d", ErrInvalidChannels, m.Channels)
	}
}

// FromImage copies img into a raster. Gray images keep one channel, images
// with a non-opaque alpha keep four, everything else becomes RGB.
func FromImage(img image.Image) *Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		out := &Image{Width: w, Height: h, Channels: 1, Pix: make([]byte, w*h)}
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*w:(y+1)*w], src.Pix[off:off+w])
		}
		return out
	case *image.Gray16:
		out := &Image{Width: w, Height: h, Channels: 1, Pix: make([]byte, w*h)}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Pix[y*w+x] = uint8(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
			}
		}
		return out
	}

	channels := 3
	if !opaque(img) {
		channels = 4
	}

	out := &Image{Width: w, Height: h, Channels: channels, Pix: make([]byte, w*h*channels)}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.Pix[i] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			if channels == 4 {
				out.Pix[i+3] = c.A
			}
			i += channels
		}
	}
	return out
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// ToImage returns a standard image view of the raster.
func (m *Image) ToImage() image.Image {
	r := image.Rect(0, 0, m.Width, m.Height)
	switch m.Channels {
	case 1:
		g := image.NewGray(r)
		copy(g.Pix, m.Pix)
		return g
	case 4:
		n := image.NewNRGBA(r)
		copy(n.Pix, m.Pix)
		return n
	default:
		n := image.NewNRGBA(r)
		for i, j := 0, 0; i < len(m.Pix); i, j = i+3, j+4 {
			n.Pix[j] = m.Pix[i]
			n.Pix[j+1] = m.Pix[i+1]
			n.Pix[j+2] = m.Pix[i+2]
			n.Pix[j+3] = 0xff
		}
		return n
	}
}

// Decode reads any registered image format (jpeg, png, gif, bmp, tiff, webp).
func Decode(data []byte) (*Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), format, nil
}

func EncodePNG(w io.Writer, m *Image) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return png.Encode(w, m.ToImage())
}

// PNG is EncodePNG into a fresh buffer.
func (m *Image) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
