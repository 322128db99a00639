package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"PanoGuard/pkg/dicom"
	"PanoGuard/pkg/inference"
	"PanoGuard/pkg/postprocess"
	"PanoGuard/pkg/preprocess"
	"PanoGuard/pkg/raster"
	"PanoGuard/pkg/storage"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakePredictor struct {
	out   []float32
	err   error
	calls int
	shape []int64
}

func (f *fakePredictor) Predict(_ context.Context, input inference.Tensor) ([]float32, error) {
	f.calls++
	f.shape = input.Shape
	return f.out, f.err
}

type fakeDicom struct {
	img   *raster.Image
	err   error
	calls int
}

func (f *fakeDicom) Decode(_ context.Context, _ []byte) (*raster.Image, error) {
	f.calls++
	return f.img, f.err
}

type panickingPredictor struct{}

func (panickingPredictor) Predict(context.Context, inference.Tensor) ([]float32, error) {
	panic("session handle is nil")
}

type panickingDicom struct{}

func (panickingDicom) Decode(context.Context, []byte) (*raster.Image, error) {
	panic("runtime error: invalid memory address or nil pointer dereference")
}

type brokenStore struct{}

func (brokenStore) Save(string, []byte) (string, error) { return "", errors.New("disk full") }
func (brokenStore) Open(string) (io.ReadCloser, error) { return nil, os.ErrNotExist }
func (brokenStore) Remove(string) error { return nil }

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testModel() ModelSpec {
	cfg := preprocess.ImageNet224()
	cfg.Width, cfg.Height = 8, 8
	return ModelSpec{Name: "test-8", Preprocess: cfg, Threshold: 0.5}
}

func grayImage(t *testing.T) *raster.Image {
	t.Helper()
	img, err := raster.New(16, 12, 1)
	require.NoError(t, err)
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	data, err := grayImage(t).PNG()
	require.NoError(t, err)
	return data
}

func dicomBytes() []byte {
	data := make([]byte, 200)
	copy(data[128:], "DICM")
	return data
}

func scores() []float32 {
	return []float32{0.1, 0.9, 0.2, 0.6, 0, 0, 0, 0, 0, 0.3}
}

func newTestPipeline(t *testing.T, pred Predictor, dec DicomDecoder, opts ...Option) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewLocalStore(root)
	require.NoError(t, err)
	return New(dec, pred, testModel(), store, quietLogger(), opts...), root
}

func requireReason(t *testing.T, err error, want dicom.Reason) {
	t.Helper()
	reason, ok := dicom.ReasonOf(err)
	require.True(t, ok, "expected a DecodeError, got %v", err)
	require.Equal(t, want, reason)
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunClassifiesPNG(t *testing.T) {
	pred := &fakePredictor{out: scores()}
	p, root := newTestPipeline(t, pred, &fakeDicom{})

	res := p.Run(context.Background(), Input{FileName: "pano.png", Data: pngBytes(t)})

	require.True(t, res.Success, res.Error)
	require.False(t, res.IsDicom)
	require.False(t, res.Mock)
	require.Equal(t, "test-8", res.Model)
	require.Len(t, res.Predictions, len(postprocess.Labels))
	require.Equal(t, postprocess.Labels[1], res.TopLabel)
	require.InDelta(t, 0.9, res.TopScore, 1e-6)
	require.Equal(t, []string{postprocess.Labels[1], postprocess.Labels[3]}, res.Flagged)
	require.Equal(t, []int64{1, 3, 8, 8}, pred.shape)
	require.Empty(t, res.ImagePath)
	requireEmptyDir(t, root)
}

func TestRunKeepsImageWhenAsked(t *testing.T) {
	p, root := newTestPipeline(t, &fakePredictor{out: scores()}, &fakeDicom{},
		WithNameFunc(func() string { return "fixed" }))

	res := p.Run(context.Background(), Input{FileName: "pano.png", Data: pngBytes(t), KeepImage: true})

	require.True(t, res.Success, res.Error)
	require.FileExists(t, res.ImagePath)
	require.Equal(t, "fixed.png", filepath.Base(res.ImagePath))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRunAcceptsBase64(t *testing.T) {
	p, _ := newTestPipeline(t, &fakePredictor{out: scores()}, &fakeDicom{})

	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
	res := p.Run(context.Background(), Input{Base64: encoded})

	require.True(t, res.Success, res.Error)
}

func TestRunRoutesDicomToDecoder(t *testing.T) {
	dec := &fakeDicom{img: grayImage(t)}
	p, _ := newTestPipeline(t, &fakePredictor{out: scores()}, dec)

	res := p.Run(context.Background(), Input{FileName: "scan.bin", Data: dicomBytes()})

	require.True(t, res.Success, res.Error)
	require.True(t, res.IsDicom)
	require.Equal(t, 1, dec.calls)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name   string
		pred   *fakePredictor
		dec    *fakeDicom
		input  Input
		assert func(t *testing.T, err error)
	}{
		{
			name:  "empty input",
			pred:  &fakePredictor{out: scores()},
			dec:   &fakeDicom{},
			input: Input{FileName: "pano.png"},
			assert: func(t *testing.T, err error) {
				requireReason(t, err, dicom.ReasonMalformed)
			},
		},
		{
			name:  "bad base64",
			pred:  &fakePredictor{out: scores()},
			dec:   &fakeDicom{},
			input: Input{Base64: "!!!not base64!!!"},
			assert: func(t *testing.T, err error) {
				requireReason(t, err, dicom.ReasonMalformed)
			},
		},
		{
			name:  "unknown image format",
			pred:  &fakePredictor{out: scores()},
			dec:   &fakeDicom{},
			input: Input{FileName: "notes.txt", Data: []byte("hello")},
			assert: func(t *testing.T, err error) {
				requireReason(t, err, dicom.ReasonUnsupported)
			},
		},
		{
			name: "dicom decode error",
			pred: &fakePredictor{out: scores()},
			dec: &fakeDicom{err: &dicom.DecodeError{
				Reason: dicom.ReasonTransferSyntax, Op: "codec", Err: errors.New("jpeg2000"),
			}},
			input: Input{FileName: "scan.dcm", Data: dicomBytes()},
			assert: func(t *testing.T, err error) {
				requireReason(t, err, dicom.ReasonTransferSyntax)
			},
		},
		{
			name:  "inference error",
			pred:  &fakePredictor{err: &inference.InferenceError{Op: "run", Err: errors.New("boom")}},
			dec:   &fakeDicom{},
			input: Input{FileName: "pano.png", Data: pngBytes(t)},
			assert: func(t *testing.T, err error) {
				var infErr *inference.InferenceError
				require.ErrorAs(t, err, &infErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, root := newTestPipeline(t, tt.pred, tt.dec)
			res := p.Run(context.Background(), tt.input)

			require.False(t, res.Success)
			require.NotEmpty(t, res.Error)
			require.Nil(t, res.Predictions)
			require.Empty(t, res.ImagePath)
			tt.assert(t, res.Err)
			requireEmptyDir(t, root)
		})
	}
}

func TestRunReportsStagingFailure(t *testing.T) {
	p := New(&fakeDicom{}, &fakePredictor{out: scores()}, testModel(), brokenStore{}, quietLogger())

	res := p.Run(context.Background(), Input{FileName: "pano.png", Data: pngBytes(t)})

	require.False(t, res.Success)
	var resErr *ResourceError
	require.ErrorAs(t, res.Err, &resErr)
}

func TestAutoModeFallsBackToMockWhenNotLoaded(t *testing.T) {
	pred := &fakePredictor{err: &inference.InferenceError{Op: "run", Err: inference.ErrNotLoaded}}
	p, _ := newTestPipeline(t, pred, &fakeDicom{}, WithMode(ModeAuto))

	res := p.Run(context.Background(), Input{FileName: "pano.png", Data: pngBytes(t)})

	require.True(t, res.Success, res.Error)
	require.True(t, res.Mock)
	require.Len(t, res.Predictions, len(postprocess.Labels))
}

func TestRealModeDoesNotFallBack(t *testing.T) {
	pred := &fakePredictor{err: &inference.InferenceError{Op: "run", Err: inference.ErrNotLoaded}}
	p, _ := newTestPipeline(t, pred, &fakeDicom{})

	res := p.Run(context.Background(), Input{FileName: "pano.png", Data: pngBytes(t)})

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, inference.ErrNotLoaded)
}

func TestMockModeSkipsPredictor(t *testing.T) {
	pred := &fakePredictor{out: scores()}
	p, _ := newTestPipeline(t, pred, &fakeDicom{}, WithMode(ModeMock))

	first := p.Run(context.Background(), Input{FileName: "pano.png", Data: pngBytes(t)})
	second := p.Run(context.Background(), Input{FileName: "pano.png", Data: pngBytes(t)})

	require.True(t, first.Success)
	require.True(t, first.Mock)
	require.Zero(t, pred.calls)
	require.Equal(t, first.Predictions, second.Predictions)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeReal, "real": ModeReal, "mock": ModeMock, "auto": ModeAuto} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseMode("gpu")
	require.Error(t, err)
}

func TestRunRecoversFromPanics(t *testing.T) {
	t.Run("decoder", func(t *testing.T) {
		p, root := newTestPipeline(t, &fakePredictor{out: scores()}, panickingDicom{})

		res := p.Run(context.Background(), Input{FileName: "scan.dcm", Data: dicomBytes()})

		require.False(t, res.Success)
		require.Contains(t, res.Error, "pipeline panic")
		requireEmptyDir(t, root)
	})

	t.Run("predictor after staging", func(t *testing.T) {
		p, root := newTestPipeline(t, panickingPredictor{}, &fakeDicom{})

		res := p.Run(context.Background(), Input{FileName: "pano.png", Data: pngBytes(t), KeepImage: true})

		require.False(t, res.Success)
		require.Empty(t, res.ImagePath)
		require.Nil(t, res.Predictions)
		requireEmptyDir(t, root)
	})
}
