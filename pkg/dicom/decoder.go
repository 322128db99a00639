// Package dicom detects DICOM input and renders its first frame to an 8-bit
// raster. Pixels go through a full codec first; uncompressed data can be
// read manually when the codec fails for a reason unrelated to compression.
package dicom

import (
	"context"
	"errors"

	"PanoGuard/pkg/raster"

	"github.com/sirupsen/logrus"
)

type Decoder struct {
	codec      Codec
	log        logrus.FieldLogger
	parseMeta  func(data []byte) (Metadata, error)
	readNative func(data []byte, meta Metadata) (*NativeFrame, error)
}

type DecoderOption func(*Decoder)

func WithMetadataParser(fn func(data []byte) (Metadata, error)) DecoderOption {
	return func(d *Decoder) {
		d.parseMeta = fn
	}
}

func WithNativeReader(fn func(data []byte, meta Metadata) (*NativeFrame, error)) DecoderOption {
	return func(d *Decoder) {
		d.readNative = fn
	}
}

func NewDecoder(codec Codec, log logrus.FieldLogger, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		codec:      codec,
		log:        log,
		parseMeta:  ParseMetadata,
		readNative: ReadNativeFrame,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode renders frame 0 of a DICOM file.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*raster.Image, error) {
	meta, err := d.parseMeta(data)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"transfer_syntax": meta.TransferSyntaxUID,
		"rows":            meta.Rows,
		"columns":         meta.Columns,
		"photometric":     meta.Photometric,
	}

	img, err := d.decodeWithCodec(ctx, data, meta)
	if err == nil {
		return img, nil
	}

	if !fallbackAllowed(err) {
		fields["error"] = err.Error()
		d.log.WithFields(fields).Warn("DICOM codec decode failed")
		return nil, err
	}

	fields["error"] = err.Error()
	d.log.WithFields(fields).Warn("DICOM codec decode failed, reading native pixel data")

	native, ferr := d.readNative(data, meta)
	if ferr != nil {
		return nil, ferr
	}
	return Render(native.Samples, meta)
}

func (d *Decoder) decodeWithCodec(ctx context.Context, data []byte, meta Metadata) (*raster.Image, error) {
	frame, err := d.codec.Decode(ctx, data, meta)
	if err != nil {
		var initErr *CodecInitError
		if errors.As(err, &initErr) {
			return nil, err
		}
		if _, typed := ReasonOf(err); !typed {
			return nil, classifyCodecError("codec", meta, err)
		}
		return nil, err
	}

	frameMeta := meta
	if frame.Width > 0 && frame.Height > 0 {
		frameMeta.Columns, frameMeta.Rows = frame.Width, frame.Height
	}
	if frame.SamplesPerPixel > 0 {
		frameMeta.SamplesPerPixel = frame.SamplesPerPixel
	}
	if frame.BitsAllocated > 0 {
		frameMeta.BitsAllocated = frame.BitsAllocated
		if frameMeta.BitsStored > frame.BitsAllocated {
			frameMeta.BitsStored = frame.BitsAllocated
		}
	}
	frameMeta.PixelRepresentation = frame.PixelRepresentation

	samples, err := frame.Samples()
	if err != nil {
		return nil, newDecodeError(ReasonOther, "codec frame", err)
	}
	img, err := Render(samples, frameMeta)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) && de.Reason == ReasonMalformed {
			return nil, newDecodeError(ReasonOther, "codec render", err)
		}
		return nil, err
	}
	return img, nil
}
