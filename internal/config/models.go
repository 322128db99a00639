package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"PanoGuard/internal/api/detection"
	"PanoGuard/pkg/pipeline"
	"PanoGuard/pkg/postprocess"
	"PanoGuard/pkg/preprocess"

	"gopkg.in/yaml.v3"
)

var ErrUnknownModel = errors.New("unknown model")

// ModelEntry is one deployable model in the registry file.
type ModelEntry struct {
	Name      string    `yaml:"name" json:"name"`
	Path      string    `yaml:"path" json:"path"`
	Width     int       `yaml:"width" json:"width"`
	Height    int       `yaml:"height" json:"height"`
	Channels  int       `yaml:"channels" json:"channels"`
	Mean      []float32 `yaml:"mean" json:"mean"`
	Std       []float32 `yaml:"std" json:"std"`
	Threshold float32   `yaml:"threshold" json:"threshold"`
	Labels    []string  `yaml:"labels,omitempty" json:"labels"`
}

type ModelRegistry struct {
	Default string       `yaml:"default" json:"default"`
	Models  []ModelEntry `yaml:"models" json:"models"`
}

func DefaultRegistry() ModelRegistry {
	p224 := preprocess.ImageNet224()
	p299 := preprocess.Inception299()
	return ModelRegistry{
		Default: "panorama-224",
		Models: []ModelEntry{
			entryFrom("panorama-224", "./models/panorama_224.onnx", p224),
			entryFrom("panorama-299", "./models/panorama_299.onnx", p299),
		},
	}
}

func entryFrom(name, path string, cfg preprocess.Config) ModelEntry {
	return ModelEntry{
		Name:      name,
		Path:      path,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Channels:  cfg.Channels,
		Mean:      cfg.Mean,
		Std:       cfg.Std,
		Threshold: 0.5,
		Labels:    postprocess.DefaultLabels(),
	}
}

// LoadModelRegistry reads the YAML registry. A missing file gives the
// built-in registry.
func LoadModelRegistry(path string) (ModelRegistry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultRegistry(), nil
	}
	if err != nil {
		return ModelRegistry{}, fmt.Errorf("read model registry: %w", err)
	}
	return ParseModelRegistry(data)
}

func ParseModelRegistry(data []byte) (ModelRegistry, error) {
	var reg ModelRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return ModelRegistry{}, fmt.Errorf("parse model registry: %w", err)
	}

	for i := range reg.Models {
		m := &reg.Models[i]
		if len(m.Labels) == 0 {
			m.Labels = postprocess.DefaultLabels()
		}
		if m.Channels == 0 {
			m.Channels = 3
		}
		if m.Threshold == 0 {
			m.Threshold = 0.5
		}
	}
	if reg.Default == "" && len(reg.Models) > 0 {
		reg.Default = reg.Models[0].Name
	}

	if err := reg.Validate(); err != nil {
		return ModelRegistry{}, err
	}
	return reg, nil
}

func (r ModelRegistry) Validate() error {
	if len(r.Models) == 0 {
		return errors.New("model registry: no models")
	}

	seen := make(map[string]bool, len(r.Models))
	for _, m := range r.Models {
		if m.Name == "" {
			return errors.New("model registry: entry without a name")
		}
		if seen[m.Name] {
			return fmt.Errorf("model registry: duplicate model %q", m.Name)
		}
		seen[m.Name] = true

		if m.Path == "" {
			return fmt.Errorf("model registry: %s has no path", m.Name)
		}
		if err := m.Preprocess().Validate(); err != nil {
			return fmt.Errorf("model registry: %s: %w", m.Name, err)
		}
		if m.Threshold < 0 || m.Threshold > 1 {
			return fmt.Errorf("model registry: %s threshold %v outside [0, 1]", m.Name, m.Threshold)
		}
	}

	if !seen[r.Default] {
		return fmt.Errorf("model registry: default %q: %w", r.Default, ErrUnknownModel)
	}
	return nil
}

// Get returns the named entry, or the default when name is empty.
func (r ModelRegistry) Get(name string) (ModelEntry, error) {
	if name == "" {
		name = r.Default
	}
	for _, m := range r.Models {
		if m.Name == name {
			return m, nil
		}
	}
	return ModelEntry{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

func (r ModelRegistry) Names() []string {
	names := make([]string, 0, len(r.Models))
	for _, m := range r.Models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

func (m ModelEntry) Preprocess() preprocess.Config {
	return preprocess.Config{
		Width:    m.Width,
		Height:   m.Height,
		Channels: m.Channels,
		Mean:     m.Mean,
		Std:      m.Std,
		Layout:   preprocess.LayoutPlanarCHW,
	}
}

func (m ModelEntry) Spec() pipeline.ModelSpec {
	return pipeline.ModelSpec{
		Name:       m.Name,
		Preprocess: m.Preprocess(),
		Labels:     m.Labels,
		Threshold:  m.Threshold,
	}
}

// ModelInfos lists the registry for the detection layer, default first.
func (r ModelRegistry) ModelInfos() []detection.ModelInfo {
	infos := make([]detection.ModelInfo, 0, len(r.Models))
	for _, m := range r.Models {
		info := detection.ModelInfo{Name: m.Name, Path: m.Path, Spec: m.Spec()}
		if m.Name == r.Default {
			infos = append([]detection.ModelInfo{info}, infos...)
			continue
		}
		infos = append(infos, info)
	}
	return infos
}
