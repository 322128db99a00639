package dicom

import (
	"context"
	"fmt"
	"os"

	"github.com/cocosip/go-dicom/pkg/dicom/parser"
	"github.com/cocosip/go-dicom/pkg/imaging"

	_ "github.com/cocosip/go-dicom-codec/jpeg/baseline"
	_ "github.com/cocosip/go-dicom-codec/jpeg/extended"
	_ "github.com/cocosip/go-dicom-codec/jpeg/lossless"
	_ "github.com/cocosip/go-dicom-codec/jpeg/lossless14sv1"
	_ "github.com/cocosip/go-dicom-codec/jpeg2000/lossless"
	_ "github.com/cocosip/go-dicom-codec/jpeg2000/lossy"
	_ "github.com/cocosip/go-dicom-codec/jpegls/lossless"
)

// FileCodec decodes through the go-dicom imaging pipeline with the JPEG,
// JPEG-LS and JPEG 2000 codecs registered. The parser works on files, so
// each decode is staged in a private scratch directory created by Init.
type FileCodec struct {
	baseDir string
	workDir string
}

func NewFileCodec(baseDir string) *FileCodec {
	return &FileCodec{baseDir: baseDir}
}

func (c *FileCodec) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.baseDir != "" {
		if err := os.MkdirAll(c.baseDir, 0o755); err != nil {
			return fmt.Errorf("create codec base dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(c.baseDir, "panoguard-dicom-")
	if err != nil {
		return fmt.Errorf("create codec work dir: %w", err)
	}
	c.workDir = dir
	return nil
}

func (c *FileCodec) Decode(ctx context.Context, data []byte, meta Metadata) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, newDecodeError(ReasonOther, "codec", err)
	}

	f, err := os.CreateTemp(c.workDir, "frame-*.dcm")
	if err != nil {
		return nil, newDecodeError(ReasonOther, "codec stage", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, newDecodeError(ReasonOther, "codec stage", err)
	}
	if err := f.Close(); err != nil {
		return nil, newDecodeError(ReasonOther, "codec stage", err)
	}

	res, err := parser.ParseFile(path, parser.WithReadOption(parser.ReadAll))
	if err != nil {
		return nil, classifyCodecError("codec parse", meta, err)
	}
	pd, err := imaging.CreatePixelData(res.Dataset)
	if err != nil {
		return nil, classifyCodecError("codec pixel data", meta, err)
	}
	if pd.FrameCount() == 0 {
		return nil, newDecodeError(ReasonMalformed, "codec", ErrNoPixelData)
	}
	raw, err := pd.GetFrame(0)
	if err != nil {
		return nil, classifyCodecError("codec frame", meta, err)
	}

	info := pd.Info
	return &Frame{
		Width:               int(info.Width),
		Height:              int(info.Height),
		SamplesPerPixel:     int(info.SamplesPerPixel),
		BitsAllocated:       int(info.BitsAllocated),
		PixelRepresentation: int(info.PixelRepresentation),
		Data:                raw,
	}, nil
}

func (c *FileCodec) Close() error {
	if c.workDir == "" {
		return nil
	}
	err := os.RemoveAll(c.workDir)
	c.workDir = ""
	return err
}

// classifyCodecError decides from the transfer syntax, not the message text,
// whether a codec failure may fall back to reading native pixels.
func classifyCodecError(op string, meta Metadata, err error) error {
	switch {
	case IsCompressed(meta.TransferSyntaxUID):
		return newDecodeError(ReasonTransferSyntax, op, fmt.Errorf("%s: %w", meta.TransferSyntaxUID, err))
	case !IsNative(meta.TransferSyntaxUID):
		return newDecodeError(ReasonUnsupported, op, fmt.Errorf("%s: %w", meta.TransferSyntaxUID, err))
	default:
		return newDecodeError(ReasonOther, op, err)
	}
}
