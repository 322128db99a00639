// Package pipeline runs an uploaded radiograph through decode, preprocessing,
// inference and labelling, and reports the outcome as a Result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PanoGuard/pkg/dicom"
	"PanoGuard/pkg/inference"
	"PanoGuard/pkg/postprocess"
	"PanoGuard/pkg/preprocess"
	"PanoGuard/pkg/raster"
	"PanoGuard/pkg/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Mode string

const (
	ModeReal Mode = "real"
	ModeMock Mode = "mock"
	// ModeAuto uses the mock only while no model is loaded.
	ModeAuto Mode = "auto"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeReal:
		return ModeReal, nil
	case ModeMock, ModeAuto:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown inference mode %q", s)
}

type Predictor interface {
	Predict(ctx context.Context, input inference.Tensor) ([]float32, error)
}

type DicomDecoder interface {
	Decode(ctx context.Context, data []byte) (*raster.Image, error)
}

// ModelSpec is everything the pipeline needs to know about the active model.
type ModelSpec struct {
	Name       string
	Preprocess preprocess.Config
	Labels     []string
	Threshold  float32
}

type Input struct {
	FileName string
	Data     []byte
	Base64   string
	// KeepImage leaves the staged PNG in the store after a successful run.
	KeepImage bool
}

type Result struct {
	Success     bool               `json:"success"`
	Predictions map[string]float32 `json:"predictions,omitempty"`
	Error       string             `json:"error,omitempty"`
	TopLabel    string             `json:"top_label,omitempty"`
	TopScore    float32            `json:"top_score,omitempty"`
	Flagged     []string           `json:"flagged,omitempty"`
	Model       string             `json:"model,omitempty"`
	Mock        bool               `json:"mock,omitempty"`
	IsDicom     bool               `json:"is_dicom"`
	ImagePath   string             `json:"-"`
	Duration    time.Duration      `json:"-"`
	Err         error              `json:"-"`
}

type Pipeline struct {
	dicom     DicomDecoder
	predictor Predictor
	mock      Predictor
	model     ModelSpec
	store     storage.ImageStore
	log       logrus.FieldLogger
	mode      Mode
	newName   func() string
}

type Option func(*Pipeline)

func WithMode(mode Mode) Option {
	return func(p *Pipeline) {
		p.mode = mode
	}
}

func WithMockPredictor(mock Predictor) Option {
	return func(p *Pipeline) {
		p.mock = mock
	}
}

func WithNameFunc(fn func() string) Option {
	return func(p *Pipeline) {
		p.newName = fn
	}
}

func New(decoder DicomDecoder, predictor Predictor, model ModelSpec, store storage.ImageStore, log logrus.FieldLogger, opts ...Option) *Pipeline {
	if len(model.Labels) == 0 {
		model.Labels = postprocess.DefaultLabels()
	}
	p := &Pipeline{
		dicom:     decoder,
		predictor: predictor,
		model:     model,
		store:     store,
		log:       log,
		mode:      ModeReal,
		newName:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.mock == nil {
		p.mock = inference.NewMockPredictor(len(p.model.Labels))
	}
	return p
}

func (p *Pipeline) Model() ModelSpec { return p.model }
func (p *Pipeline) Mode() Mode       { return p.mode }

// Run never panics and never returns an error; failures come back as
// Result{Success: false}. A staged image is removed on every failure.
func (p *Pipeline) Run(ctx context.Context, in Input) (res Result) {
	res = Result{Model: p.model.Name}
	fields := logrus.Fields{
		"file_name": in.FileName,
		"model":     p.model.Name,
	}

	defer func() {
		if r := recover(); r != nil {
			res = p.fail(res, fields, fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	return p.run(ctx, in, &res, fields)
}

func (p *Pipeline) run(ctx context.Context, in Input, res *Result, fields logrus.Fields) Result {
	start := time.Now()

	data, err := in.bytes()
	if err != nil {
		return p.fail(*res, fields, err)
	}
	res.IsDicom = dicom.IsDicom(in.FileName, data)
	fields["is_dicom"] = res.IsDicom

	img, err := p.decode(ctx, data, res.IsDicom)
	if err != nil {
		return p.fail(*res, fields, err)
	}

	res.ImagePath, err = p.stage(img)
	if err != nil {
		return p.fail(*res, fields, err)
	}

	tensor, err := preprocess.Preprocess(img, p.model.Preprocess)
	if err != nil {
		return p.fail(*res, fields, err)
	}

	out, mock, err := p.predict(ctx, inference.Tensor{Shape: p.model.Preprocess.Shape(), Data: tensor})
	if err != nil {
		return p.fail(*res, fields, err)
	}

	res.Success = true
	res.Mock = mock
	res.Predictions = postprocess.ToLabeled(out, p.model.Labels)
	res.TopLabel, res.TopScore = postprocess.Top(out, p.model.Labels)
	res.Flagged = postprocess.Flagged(res.Predictions, p.model.Labels, p.model.Threshold)
	res.Duration = time.Since(start)

	if !in.KeepImage {
		p.cleanup(res.ImagePath, fields)
		res.ImagePath = ""
	}

	fields["top_label"] = res.TopLabel
	fields["duration_ms"] = res.Duration.Milliseconds()
	p.log.WithFields(fields).Info("Radiograph classified")

	return *res
}

func (in Input) bytes() ([]byte, error) {
	if len(in.Data) > 0 {
		return in.Data, nil
	}
	if in.Base64 == "" {
		return nil, &dicom.DecodeError{Reason: dicom.ReasonMalformed, Op: "input", Err: errors.New("empty image")}
	}
	data, err := dicom.DecodeBase64(in.Base64)
	if err != nil {
		return nil, &dicom.DecodeError{Reason: dicom.ReasonMalformed, Op: "base64", Err: err}
	}
	if len(data) == 0 {
		return nil, &dicom.DecodeError{Reason: dicom.ReasonMalformed, Op: "base64", Err: errors.New("empty image")}
	}
	return data, nil
}

func (p *Pipeline) decode(ctx context.Context, data []byte, isDicom bool) (*raster.Image, error) {
	if isDicom {
		return p.dicom.Decode(ctx, data)
	}
	img, _, err := raster.Decode(data)
	if err != nil {
		return nil, &dicom.DecodeError{Reason: dicom.ReasonUnsupported, Op: "image decode", Err: err}
	}
	return img, nil
}

func (p *Pipeline) stage(img *raster.Image) (string, error) {
	encoded, err := img.PNG()
	if err != nil {
		return "", &ResourceError{Op: "encode png", Err: err}
	}
	path, err := p.store.Save(p.newName()+".png", encoded)
	if err != nil {
		return "", &ResourceError{Op: "write image", Err: err}
	}
	return path, nil
}

func (p *Pipeline) predict(ctx context.Context, tensor inference.Tensor) ([]float32, bool, error) {
	if p.mode == ModeMock {
		return p.predictMock(ctx, tensor, "inference mode is mock")
	}

	out, err := p.predictor.Predict(ctx, tensor)
	if err == nil {
		return out, false, nil
	}
	if p.mode == ModeAuto && errors.Is(err, inference.ErrNotLoaded) {
		return p.predictMock(ctx, tensor, err.Error())
	}
	return nil, false, err
}

func (p *Pipeline) predictMock(ctx context.Context, tensor inference.Tensor, reason string) ([]float32, bool, error) {
	p.log.WithFields(logrus.Fields{
		"model":  p.model.Name,
		"reason": reason,
	}).Warn("Serving mock predictions")

	out, err := p.mock.Predict(ctx, tensor)
	if err != nil {
		return nil, true, err
	}
	return out, true, nil
}

func (p *Pipeline) fail(res Result, fields logrus.Fields, err error) Result {
	p.cleanup(res.ImagePath, fields)

	res.Success = false
	res.ImagePath = ""
	res.Predictions = nil
	res.Error = err.Error()
	res.Err = err

	fields["error"] = err.Error()
	var initErr *dicom.CodecInitError
	if errors.As(err, &initErr) {
		p.log.WithFields(fields).Error("Radiograph pipeline failed, DICOM codec unavailable")
	} else {
		p.log.WithFields(fields).Warn("Radiograph pipeline failed")
	}
	return res
}

func (p *Pipeline) cleanup(path string, fields logrus.Fields) {
	if path == "" {
		return
	}
	if err := p.store.Remove(path); err != nil {
		p.log.WithFields(logrus.Fields{
			"path":  path,
			"error": err.Error(),
		}).Error("Failed to remove staged image")
	}
}
