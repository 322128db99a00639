package dicom

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	Monochrome1 = "MONOCHROME1"
	Monochrome2 = "MONOCHROME2"
)

// Metadata is the subset of the data set needed to render pixels.
type Metadata struct {
	TransferSyntaxUID   string
	Rows                int
	Columns             int
	SamplesPerPixel     int
	BitsAllocated       int
	BitsStored          int
	PixelRepresentation int
	Photometric         string
	RescaleSlope        float64
	RescaleIntercept    float64
	WindowCenter        *float64
	WindowWidth         *float64
	NumberOfFrames      int
}

func (m Metadata) Signed() bool { return m.PixelRepresentation == 1 }

// NativeFrame holds the samples of one uncompressed frame,
// Samples[pixel*SamplesPerPixel+sample].
type NativeFrame struct {
	Rows            int
	Cols            int
	SamplesPerPixel int
	Samples         []int
}

// parseDataset turns parser panics on corrupted input into a Malformed
// DecodeError.
func parseDataset(data []byte, opts ...dicom.ParseOption) (ds dicom.Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			ds = dicom.Dataset{}
			err = newDecodeError(ReasonMalformed, "parse", fmt.Errorf("parser panic: %v", r))
		}
	}()

	ds, err = dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, opts...)
	if err != nil {
		return dicom.Dataset{}, newDecodeError(ReasonMalformed, "parse", err)
	}
	return ds, nil
}

// ParseMetadata reads the data set without pixel data.
func ParseMetadata(data []byte) (Metadata, error) {
	ds, err := parseDataset(data, dicom.SkipPixelData())
	if err != nil {
		return Metadata{}, err
	}
	return metadataFrom(&ds)
}

func metadataFrom(ds *dicom.Dataset) (Metadata, error) {
	meta := Metadata{
		TransferSyntaxUID: cleanUID(stringValue(ds, tag.TransferSyntaxUID)),
		SamplesPerPixel:   1,
		RescaleSlope:      1,
		NumberOfFrames:    1,
		Photometric:       strings.TrimSpace(stringValue(ds, tag.PhotometricInterpretation)),
	}

	var ok bool
	if meta.Rows, ok = intValue(ds, tag.Rows); !ok {
		return Metadata{}, newDecodeError(ReasonMalformed, "metadata", fmt.Errorf("missing rows"))
	}
	if meta.Columns, ok = intValue(ds, tag.Columns); !ok {
		return Metadata{}, newDecodeError(ReasonMalformed, "metadata", fmt.Errorf("missing columns"))
	}
	if v, ok := intValue(ds, tag.SamplesPerPixel); ok && v > 0 {
		meta.SamplesPerPixel = v
	}
	if meta.BitsAllocated, ok = intValue(ds, tag.BitsAllocated); !ok {
		meta.BitsAllocated = 16
	}
	if meta.BitsStored, ok = intValue(ds, tag.BitsStored); !ok || meta.BitsStored <= 0 || meta.BitsStored > meta.BitsAllocated {
		meta.BitsStored = meta.BitsAllocated
	}
	meta.PixelRepresentation, _ = intValue(ds, tag.PixelRepresentation)
	if v, ok := intValue(ds, tag.NumberOfFrames); ok && v > 0 {
		meta.NumberOfFrames = v
	}
	if v, ok := floatValue(ds, tag.RescaleSlope); ok && v != 0 {
		meta.RescaleSlope = v
	}
	if v, ok := floatValue(ds, tag.RescaleIntercept); ok {
		meta.RescaleIntercept = v
	}
	if v, ok := floatValue(ds, tag.WindowCenter); ok {
		meta.WindowCenter = &v
	}
	if v, ok := floatValue(ds, tag.WindowWidth); ok {
		meta.WindowWidth = &v
	}
	if meta.Photometric == "" {
		meta.Photometric = Monochrome2
	}

	return meta, nil
}

// ReadNativeFrame parses the full data set and returns frame 0 of
// uncompressed pixel data. Encapsulated data is rejected.
func ReadNativeFrame(data []byte, meta Metadata) (*NativeFrame, error) {
	if !IsNative(meta.TransferSyntaxUID) {
		return nil, newDecodeError(ReasonUnsupported, "manual decode", fmt.Errorf("%w: %s", ErrEncapsulated, meta.TransferSyntaxUID))
	}

	ds, err := parseDataset(data)
	if err != nil {
		return nil, err
	}

	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, newDecodeError(ReasonMalformed, "manual decode", ErrNoPixelData)
	}
	info, ok := el.Value.GetValue().(dicom.PixelDataInfo)
	if !ok {
		return nil, newDecodeError(ReasonMalformed, "manual decode", ErrNoPixelData)
	}
	if info.IsEncapsulated {
		return nil, newDecodeError(ReasonUnsupported, "manual decode", ErrEncapsulated)
	}
	if len(info.Frames) == 0 {
		return nil, newDecodeError(ReasonMalformed, "manual decode", ErrNoPixelData)
	}

	fr := info.Frames[0]
	if fr.Encapsulated {
		return nil, newDecodeError(ReasonUnsupported, "manual decode", ErrEncapsulated)
	}

	native := fr.NativeData
	spp := meta.SamplesPerPixel
	out := &NativeFrame{
		Rows:            meta.Rows,
		Cols:            meta.Columns,
		SamplesPerPixel: spp,
		Samples:         make([]int, 0, len(native.Data)*spp),
	}
	for _, px := range native.Data {
		for s := 0; s < spp; s++ {
			if s < len(px) {
				out.Samples = append(out.Samples, px[s])
			} else {
				out.Samples = append(out.Samples, 0)
			}
		}
	}
	if len(out.Samples) != meta.Rows*meta.Columns*spp {
		return nil, newDecodeError(ReasonMalformed, "manual decode",
			fmt.Errorf("got %d samples, want %d", len(out.Samples), meta.Rows*meta.Columns*spp))
	}

	return out, nil
}

func firstString(ds *dicom.Dataset, t tag.Tag) (string, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil || el.Value == nil {
		return "", false
	}
	switch v := el.Value.GetValue().(type) {
	case []string:
		if len(v) > 0 {
			return strings.Trim(v[0], "\x00 "), true
		}
	case []int:
		if len(v) > 0 {
			return strconv.Itoa(v[0]), true
		}
	case []float64:
		if len(v) > 0 {
			return strconv.FormatFloat(v[0], 'f', -1, 64), true
		}
	}
	return "", false
}

func stringValue(ds *dicom.Dataset, t tag.Tag) string {
	s, _ := firstString(ds, t)
	return s
}

func intValue(ds *dicom.Dataset, t tag.Tag) (int, bool) {
	s, ok := firstString(ds, t)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, false
		}
		return int(f), true
	}
	return n, true
}

func floatValue(ds *dicom.Dataset, t tag.Tag) (float64, bool) {
	s, ok := firstString(ds, t)
	if !ok || s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
