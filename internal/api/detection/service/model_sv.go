package detectionService

import (
	"fmt"
	"sync"

	"PanoGuard/internal/api/detection"
	"PanoGuard/pkg/dicom"
	"PanoGuard/pkg/inference"
	"PanoGuard/pkg/pipeline"
	"PanoGuard/pkg/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// ModelSession is the slice of *inference.Manager the host drives.
type ModelSession interface {
	pipeline.Predictor
	Load(ctx context.Context, path string) error
	Release() error
	State() inference.State
	ModelPath() string
}

type CodecStatus interface {
	State() dicom.CodecState
}

// ModelHost owns the active model and the pipeline built around it.
// Switching models is Release followed by Load on the shared session.
type ModelHost struct {
	mu      sync.RWMutex
	log     *logrus.Logger
	session ModelSession
	decoder pipeline.DicomDecoder
	codec   CodecStatus
	store   storage.ImageStore
	mode    pipeline.Mode
	models  []detection.ModelInfo
	active  detection.ModelInfo
	current *pipeline.Pipeline
}

func NewModelHost(
	log *logrus.Logger,
	session ModelSession,
	decoder pipeline.DicomDecoder,
	codec CodecStatus,
	store storage.ImageStore,
	mode pipeline.Mode,
	models []detection.ModelInfo,
) *ModelHost {
	return &ModelHost{
		log:     log,
		session: session,
		decoder: decoder,
		codec:   codec,
		store:   store,
		mode:    mode,
		models:  models,
	}
}

// Activate makes name the active model. An empty name re-activates the
// current model, or the first registered one.
func (h *ModelHost) Activate(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if name == "" {
		name = h.active.Name
	}
	if name == "" && len(h.models) > 0 {
		name = h.models[0].Name
	}
	info, ok := h.find(name)
	if !ok {
		return detection.ErrUnknownModel
	}

	fields := logrus.Fields{
		"model": info.Name,
		"path":  info.Path,
		"mode":  h.mode,
	}

	prev := h.active
	h.swap(info)

	if h.mode == pipeline.ModeMock {
		h.log.WithFields(fields).Warn("Inference mode is mock, model file not loaded")
		return nil
	}

	if err := h.session.Release(); err != nil {
		h.log.WithFields(fields).WithField("error", err.Error()).Warn("Failed to release previous model")
	}

	err := h.session.Load(ctx, info.Path)
	if err == nil {
		h.log.WithFields(fields).Info("Model loaded")
		return nil
	}

	fields["error"] = err.Error()
	if h.mode == pipeline.ModeAuto {
		h.log.WithFields(fields).Warn("Model failed to load, serving mock predictions")
		return nil
	}

	h.log.WithFields(fields).Error("Model failed to load")
	if prev.Path != "" && prev.Name != info.Name {
		if rerr := h.session.Load(ctx, prev.Path); rerr == nil {
			h.swap(prev)
			h.log.WithField("model", prev.Name).Warn("Previous model restored")
		}
	}

	return fmt.Errorf("%w: %v", detection.ErrModelUnavailable, err)
}

func (h *ModelHost) Pipeline() *pipeline.Pipeline {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *ModelHost) Status() detection.ModelStatusResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := detection.ModelStatusResponse{
		Active: h.active.Name,
		Mode:   string(h.mode),
		State:  h.session.State().String(),
		Path:   h.session.ModelPath(),
		Codec:  dicom.CodecUninitialized.String(),
		Models: make([]detection.ModelSummary, 0, len(h.models)),
	}
	if h.codec != nil {
		status.Codec = h.codec.State().String()
	}

	for _, m := range h.models {
		cfg := m.Spec.Preprocess
		status.Models = append(status.Models, detection.ModelSummary{
			Name:      m.Name,
			Path:      m.Path,
			Width:     cfg.Width,
			Height:    cfg.Height,
			Channels:  cfg.Channels,
			Threshold: m.Spec.Threshold,
			Labels:    m.Spec.Labels,
			Active:    m.Name == h.active.Name,
		})
	}

	return status
}

// Close releases the native session.
func (h *ModelHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Release()
}

func (h *ModelHost) find(name string) (detection.ModelInfo, bool) {
	for _, m := range h.models {
		if m.Name == name {
			return m, true
		}
	}
	return detection.ModelInfo{}, false
}

func (h *ModelHost) swap(info detection.ModelInfo) {
	h.active = info
	h.current = pipeline.New(h.decoder, h.session, info.Spec, h.store, h.log, pipeline.WithMode(h.mode))
}
