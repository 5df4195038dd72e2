package render

import (
	"fmt"
	"strings"
)

const (
	DefaultWidth      = 1920
	DefaultHeight     = 1080
	DefaultRenderer   = "Storm"
	DefaultComplexity = "high"
)

// Complexities are the refinement levels usdrecord accepts.
var Complexities = []string{"low", "medium", "high", "veryhigh"}

var knownRenderers = map[string]string{
	"storm":  "Storm",
	"gl":     "GL",
	"cycles": "Cycles",
	"embree": "Embree",
	"prman":  "Prman",
	"arnold": "Arnold",
}

// CanonicalRenderer fixes the case of known delegate names. Unknown names
// are returned unchanged.
func CanonicalRenderer(name string) string {
	if c, ok := knownRenderers[strings.ToLower(name)]; ok {
		return c
	}
	return name
}

// Request is one render. Zero fields take the package defaults.
type Request struct {
	ScenePath  string `yaml:"scene"`
	OutputPath string `yaml:"output"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Renderer   string `yaml:"renderer"`
	// CameraPath is passed to the renderer verbatim when set.
	CameraPath string `yaml:"camera"`
	Complexity string `yaml:"complexity"`
	// Visible is accepted for compatibility; usdrecord always renders
	// offscreen.
	Visible bool `yaml:"visible"`
}

func (r Request) withDefaults() Request {
	if r.Width == 0 {
		r.Width = DefaultWidth
	}
	if r.Height == 0 {
		r.Height = DefaultHeight
	}
	if r.Renderer == "" {
		r.Renderer = DefaultRenderer
	}
	if r.Complexity == "" {
		r.Complexity = DefaultComplexity
	}
	r.Renderer = CanonicalRenderer(r.Renderer)
	r.Complexity = strings.ToLower(r.Complexity)
	return r
}

// Validate checks a request after defaults are applied.
func (r Request) Validate() error {
	r = r.withDefaults()
	switch {
	case r.ScenePath == "":
		return &RequestError{Field: "scene", Msg: "path is required"}
	case r.OutputPath == "":
		return &RequestError{Field: "output", Msg: "path is required"}
	case r.Width < 0:
		return &RequestError{Field: "width", Msg: fmt.Sprintf("must be positive, got %d", r.Width)}
	case r.Height < 0:
		return &RequestError{Field: "height", Msg: fmt.Sprintf("must be positive, got %d", r.Height)}
	}
	for _, c := range Complexities {
		if r.Complexity == c {
			return nil
		}
	}
	return &RequestError{Field: "complexity", Msg: fmt.Sprintf("%q is not one of %s", r.Complexity, strings.Join(Complexities, ", "))}
}

// Args is the usdrecord argument vector.
func Args(input string, r Request, camera string) []string {
	r = r.withDefaults()
	args := []string{
		input,
		r.OutputPath,
		"--imageWidth", fmt.Sprint(r.Width),
		"--disableCameraLight",
	}
	if camera != "" {
		args = append(args, "--camera", camera)
	}
	return append(args, "--renderer", r.Renderer, "--complexity", r.Complexity)
}
