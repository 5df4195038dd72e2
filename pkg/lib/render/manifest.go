package render

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest is a batch of renders with shared defaults.
//
//	defaults:
//	  width: 1280
//	  renderer: Storm
//	renders:
//	  - scene: shots/a.usda
//	    output: out/a.png
type Manifest struct {
	Defaults Request   `yaml:"defaults"`
	Renders  []Request `yaml:"renders"`

	dir string
}

// LoadManifest reads a YAML manifest. Relative paths in it are resolved
// against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(m.Renders) == 0 {
		return nil, fmt.Errorf("%s: no renders listed", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(abs)
	return &m, nil
}

// Requests returns the renders with defaults filled in. Every request is
// validated; the first invalid one is reported with its index.
func (m *Manifest) Requests() ([]Request, error) {
	out := make([]Request, len(m.Renders))
	for i, r := range m.Renders {
		d := m.Defaults
		if r.Width == 0 {
			r.Width = d.Width
		}
		if r.Height == 0 {
			r.Height = d.Height
		}
		if r.Renderer == "" {
			r.Renderer = d.Renderer
		}
		if r.Complexity == "" {
			r.Complexity = d.Complexity
		}
		if r.CameraPath == "" {
			r.CameraPath = d.CameraPath
		}
		r.Visible = r.Visible || d.Visible
		r.ScenePath = m.resolve(r.ScenePath)
		r.OutputPath = m.resolve(r.OutputPath)
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("render %d: %w", i, err)
		}
		out[i] = r.withDefaults()
	}
	return out, nil
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.dir == "" {
		return p
	}
	return filepath.Join(m.dir, p)
}
