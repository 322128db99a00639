package inference

// Tensor is a dense float32 tensor.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Elements is the product of Shape, with non-positive dims counted as 1.
func (t Tensor) Elements() int {
	n := 1
	for _, d := range t.Shape {
		if d > 0 {
			n *= int(d)
		}
	}
	return n
}

type TensorInfo struct {
	Name  string
	Shape []int64
}

// Session is a loaded model graph.
type Session interface {
	Inputs() []TensorInfo
	Outputs() []TensorInfo
	Run(inputs map[string]Tensor) (map[string]Tensor, error)
	Destroy() error
}

// Runtime opens model files into sessions.
type Runtime interface {
	Open(path string) (Session, error)
}
