package dicom

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Frame is one decoded frame as little-endian native samples.
type Frame struct {
	Width               int
	Height              int
	SamplesPerPixel     int
	BitsAllocated       int
	PixelRepresentation int
	Data                []byte
}

// Samples unpacks Data into one int per sample.
func (f *Frame) Samples() ([]int, error) {
	switch f.BitsAllocated {
	case 8:
		out := make([]int, len(f.Data))
		for i, b := range f.Data {
			out[i] = int(b)
		}
		return out, nil
	case 16:
		if len(f.Data)%2 != 0 {
			return nil, fmt.Errorf("odd frame length %d", len(f.Data))
		}
		out := make([]int, len(f.Data)/2)
		for i := range out {
			out[i] = int(binary.LittleEndian.Uint16(f.Data[i*2:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrBitsAlloc, f.BitsAllocated)
	}
}

// PixelCodec decodes frame 0 of a DICOM file, compressed or not.
type PixelCodec interface {
	Init(ctx context.Context) error
	Decode(ctx context.Context, data []byte, meta Metadata) (*Frame, error)
	Close() error
}

// Codec is what the decoder depends on.
type Codec interface {
	Decode(ctx context.Context, data []byte, meta Metadata) (*Frame, error)
}

type CodecState int32

const (
	CodecUninitialized CodecState = iota
	CodecInitializing
	CodecReady
	CodecFailed
)

func (s CodecState) String() string {
	switch s {
	case CodecInitializing:
		return "initializing"
	case CodecReady:
		return "ready"
	case CodecFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// LazyCodec initialises the wrapped codec on first use. Concurrent first
// callers share one attempt. A failed attempt is final.
type LazyCodec struct {
	codec PixelCodec
	log   logrus.FieldLogger

	group   singleflight.Group
	mu      sync.RWMutex
	state   CodecState
	initErr *CodecInitError
}

func NewLazyCodec(codec PixelCodec, log logrus.FieldLogger) *LazyCodec {
	return &LazyCodec{codec: codec, log: log}
}

func (l *LazyCodec) State() CodecState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Ready brings the codec up if needed and returns the init error, if any.
func (l *LazyCodec) Ready(ctx context.Context) error {
	l.mu.RLock()
	state, initErr := l.state, l.initErr
	l.mu.RUnlock()

	switch state {
	case CodecReady:
		return nil
	case CodecFailed:
		return initErr
	}

	_, err, _ := l.group.Do("init", func() (interface{}, error) {
		l.mu.Lock()
		if l.state == CodecReady {
			l.mu.Unlock()
			return nil, nil
		}
		if l.state == CodecFailed {
			err := l.initErr
			l.mu.Unlock()
			return nil, err
		}
		l.state = CodecInitializing
		l.mu.Unlock()

		err := l.codec.Init(ctx)

		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.state = CodecFailed
			l.initErr = &CodecInitError{Err: err}
			l.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Error("DICOM pixel codec failed to initialize, DICOM decoding is disabled")
			return nil, l.initErr
		}
		l.state = CodecReady
		l.log.Info("DICOM pixel codec initialized")
		return nil, nil
	})
	return err
}

func (l *LazyCodec) Decode(ctx context.Context, data []byte, meta Metadata) (*Frame, error) {
	if err := l.Ready(ctx); err != nil {
		return nil, err
	}
	return l.codec.Decode(ctx, data, meta)
}

func (l *LazyCodec) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != CodecReady {
		return nil
	}
	l.state = CodecUninitialized
	return l.codec.Close()
}
