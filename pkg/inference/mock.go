package inference

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"
)

// MockPredictor returns a stable pseudo-random score vector derived from the
// input. It exists for degraded operation and tests only.
type MockPredictor struct {
	Size int
}

func NewMockPredictor(size int) *MockPredictor {
	return &MockPredictor{Size: size}
}

func (p *MockPredictor) Predict(ctx context.Context, input Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &InferenceError{Op: "mock", Err: err}
	}

	h := fnv.New64a()
	buf := make([]byte, 4)
	for _, v := range input.Data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		h.Write(buf)
	}

	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	out := make([]float32, p.Size)
	for i := range out {
		out[i] = rng.Float32()
	}
	return out, nil
}
