// Package inference owns the lifecycle of the classifier session: lazy
// idempotent load, serialised runs and explicit release.
package inference

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateUninitialized State = iota
	StateLoaded
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateReleased:
		return "released"
	default:
		return "uninitialized"
	}
}

// Manager is an injected handle around one model session. Runs are
// serialised; a native run cannot be interrupted.
type Manager struct {
	runtime Runtime
	log     logrus.FieldLogger

	mu      sync.Mutex
	session Session
	path    string
	state   State
	input   TensorInfo
	output  TensorInfo
}

func NewManager(runtime Runtime, log logrus.FieldLogger) *Manager {
	return &Manager{runtime: runtime, log: log}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) ModelPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Load opens path once. Later calls return without touching the runtime,
// also when they name another path; use Release first to switch models.
func (m *Manager) Load(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return &LoadError{Path: path, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateLoaded {
		if path != m.path {
			m.log.WithFields(logrus.Fields{
				"loaded":    m.path,
				"requested": path,
			}).Warn("Model already loaded, release it before loading another")
		}
		return nil
	}

	session, err := m.runtime.Open(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}

	inputs, outputs := session.Inputs(), session.Outputs()
	if len(inputs) != 1 || len(outputs) != 1 {
		if derr := session.Destroy(); derr != nil {
			m.log.WithFields(logrus.Fields{
				"model": path,
				"error": derr.Error(),
			}).Warn("Failed to destroy rejected model session")
		}
		if len(inputs) != 1 {
			return &LoadError{Path: path, Err: fmt.Errorf("%w: got %d", ErrInputMismatch, len(inputs))}
		}
		return &LoadError{Path: path, Err: fmt.Errorf("%w: got %d", ErrOutputMismatch, len(outputs))}
	}

	m.session = session
	m.path = path
	m.input = inputs[0]
	m.output = outputs[0]
	m.state = StateLoaded

	m.log.WithFields(logrus.Fields{
		"model":  path,
		"input":  m.input.Name,
		"output": m.output.Name,
	}).Info("Model loaded")

	return nil
}

type runResult struct {
	out []float32
	err error
}

// Run feeds input under the declared input name and returns the declared
// output. If ctx ends while the session is running the caller gets the
// context error at once; the run completes in the background and its output
// is dropped.
func (m *Manager) Run(ctx context.Context, input Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &InferenceError{Op: "run", Err: err}
	}

	done := make(chan runResult, 1)
	go func() {
		out, err := m.run(ctx, input)
		done <- runResult{out: out, err: err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		m.log.WithFields(logrus.Fields{
			"error": ctx.Err().Error(),
		}).Warn("Inference abandoned by caller, result will be discarded")
		return nil, &InferenceError{Op: "run", Err: ctx.Err()}
	}
}

func (m *Manager) run(ctx context.Context, input Tensor) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateLoaded || m.session == nil {
		return nil, &InferenceError{Op: "run", Err: ErrNotLoaded}
	}
	if err := ctx.Err(); err != nil {
		return nil, &InferenceError{Op: "run", Err: err}
	}

	outputs, err := m.session.Run(map[string]Tensor{m.input.Name: input})
	if err != nil {
		return nil, &InferenceError{Op: "run", Err: err}
	}

	out, ok := outputs[m.output.Name]
	if !ok {
		return nil, &InferenceError{Op: "read output", Err: fmt.Errorf("%w: %q", ErrMissingOutput, m.output.Name)}
	}
	if len(out.Data) == 0 {
		return nil, &InferenceError{Op: "read output", Err: ErrEmptyOutput}
	}
	if len(out.Shape) > 0 && out.Elements() != len(out.Data) {
		return nil, &InferenceError{Op: "read output", Err: fmt.Errorf("shape %v does not match %d values", out.Shape, len(out.Data))}
	}

	return out.Data, nil
}

// Predict satisfies the pipeline predictor contract.
func (m *Manager) Predict(ctx context.Context, input Tensor) ([]float32, error) {
	return m.Run(ctx, input)
}

// Release destroys the session. It is a no-op when nothing is loaded.
func (m *Manager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateLoaded || m.session == nil {
		return nil
	}

	err := m.session.Destroy()
	m.log.WithFields(logrus.Fields{
		"model": m.path,
	}).Info("Model released")

	m.session = nil
	m.path = ""
	m.input = TensorInfo{}
	m.output = TensorInfo{}
	m.state = StateReleased

	if err != nil {
		return fmt.Errorf("release model: %w", err)
	}
	return nil
}
