package inference

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// ONNXRuntime opens .onnx models with onnxruntime. LibraryPath points at the
// onnxruntime shared library; empty uses the loader default.
type ONNXRuntime struct {
	LibraryPath string
}

func NewONNXRuntime(libraryPath string) *ONNXRuntime {
	return &ONNXRuntime{LibraryPath: libraryPath}
}

func (r *ONNXRuntime) init() error {
	envOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if r.LibraryPath != "" {
			ort.SetSharedLibraryPath(r.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	})
	return envErr
}

func (r *ONNXRuntime) Open(path string) (Session, error) {
	if err := r.init(); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model io info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInputMismatch, len(inputs))
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrOutputMismatch, len(outputs))
	}

	in := TensorInfo{Name: inputs[0].Name, Shape: staticShape(inputs[0].Dimensions)}
	out := TensorInfo{Name: outputs[0].Name, Shape: staticShape(outputs[0].Dimensions)}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(in.Shape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(out.Shape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{in.Name}, []string{out.Name},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &onnxSession{
		session: session,
		input:   in,
		output:  out,
		inT:     inputTensor,
		outT:    outputTensor,
	}, nil
}

// staticShape pins dynamic dimensions (batch) to 1.
func staticShape(dims ort.Shape) []int64 {
	out := make([]int64, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		out[i] = d
	}
	return out
}

type onnxSession struct {
	session *ort.AdvancedSession
	input   TensorInfo
	output  TensorInfo
	inT     *ort.Tensor[float32]
	outT    *ort.Tensor[float32]
}

func (s *onnxSession) Inputs() []TensorInfo  { return []TensorInfo{s.input} }
func (s *onnxSession) Outputs() []TensorInfo { return []TensorInfo{s.output} }

func (s *onnxSession) Run(inputs map[string]Tensor) (map[string]Tensor, error) {
	in, ok := inputs[s.input.Name]
	if !ok {
		return nil, fmt.Errorf("input %q not bound", s.input.Name)
	}
	dst := s.inT.GetData()
	if len(in.Data) != len(dst) {
		return nil, fmt.Errorf("input %q has %d values, model expects %d", s.input.Name, len(in.Data), len(dst))
	}
	copy(dst, in.Data)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	raw := s.outT.GetData()
	data := make([]float32, len(raw))
	copy(data, raw)

	return map[string]Tensor{
		s.output.Name: {Shape: append([]int64(nil), s.output.Shape...), Data: data},
	}, nil
}

func (s *onnxSession) Destroy() error {
	var firstErr error
	for _, destroy := range []func() error{s.session.Destroy, s.inT.Destroy, s.outT.Destroy} {
		if err := destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
