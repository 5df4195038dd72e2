package render

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		camera string
		want   []string
	}{
		{
			name: "defaults",
			req:  Request{OutputPath: "out.png"},
			want: []string{"in.usda", "out.png", "--imageWidth", "1920", "--disableCameraLight", "--renderer", "Storm", "--complexity", "high"},
		},
		{
			name:   "camera",
			req:    Request{OutputPath: "out.png", Width: 800, Renderer: "GL"},
			camera: "/Cam",
			want:   []string{"in.usda", "out.png", "--imageWidth", "800", "--disableCameraLight", "--camera", "/Cam", "--renderer", "GL", "--complexity", "high"},
		},
		{
			name: "custom renderer passes through",
			req:  Request{OutputPath: "out.png", Renderer: "MyDelegate", Complexity: "veryhigh"},
			want: []string{"in.usda", "out.png", "--imageWidth", "1920", "--disableCameraLight", "--renderer", "MyDelegate", "--complexity", "veryhigh"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Args("in.usda", tt.req, tt.camera)); diff != "" {
				t.Fatalf("Args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCanonicalRenderer(t *testing.T) {
	for in, want := range map[string]string{
		"storm":     "Storm",
		"STORM":     "Storm",
		"gl":        "GL",
		"cycles":    "Cycles",
		"Prman":     "Prman",
		"arnold":    "Arnold",
		"HdMoonRay": "HdMoonRay",
	} {
		if got := CanonicalRenderer(in); got != want {
			t.Fatalf("CanonicalRenderer(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"ok", Request{ScenePath: "a.usda", OutputPath: "a.png"}, ""},
		{"no scene", Request{OutputPath: "a.png"}, "scene"},
		{"no output", Request{ScenePath: "a.usda"}, "output"},
		{"negative width", Request{ScenePath: "a.usda", OutputPath: "a.png", Width: -1}, "width"},
		{"negative height", Request{ScenePath: "a.usda", OutputPath: "a.png", Height: -5}, "height"},
		{"complexity", Request{ScenePath: "a.usda", OutputPath: "a.png", Complexity: "max"}, "complexity"},
		{"complexity case", Request{ScenePath: "a.usda", OutputPath: "a.png", Complexity: "Medium"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			var reqErr *RequestError
			if !errors.As(err, &reqErr) || reqErr.Field != tt.field {
				t.Fatalf("Validate = %v, want RequestError on %s", err, tt.field)
			}
		})
	}
}
