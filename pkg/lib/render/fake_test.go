package render

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bsundman/nodle/pkg/lib/platform"
	"github.com/bsundman/nodle/pkg/lib/runner"
)

// pngHeader is enough of a PNG for format sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// fakeLauncher records every spec. By default it behaves like a usdrecord
// that writes a PNG to its second argument and exits 0.
type fakeLauncher struct {
	mu    sync.Mutex
	calls []runner.Spec
	// exported holds the content of the input layer at launch time.
	exported []string
	run      func(ctx context.Context, spec runner.Spec) (*runner.Result, error)
}

func (f *fakeLauncher) Run(ctx context.Context, spec runner.Spec) (*runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, spec)
	if len(spec.Args) > 0 {
		data, _ := os.ReadFile(spec.Args[0])
		f.exported = append(f.exported, string(data))
	}
	run := f.run
	f.mu.Unlock()
	if run != nil {
		return run(ctx, spec)
	}
	return writeOutput(spec, 0)
}

func (f *fakeLauncher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func writeOutput(spec runner.Spec, code int) (*runner.Result, error) {
	if err := os.WriteFile(spec.Args[1], pngHeader, 0o644); err != nil {
		return nil, err
	}
	return &runner.Result{Command: spec.Command, ExitCode: code, Output: []byte("rendered\n")}, nil
}

func exitOnly(code int, output string) func(context.Context, runner.Spec) (*runner.Result, error) {
	return func(_ context.Context, spec runner.Spec) (*runner.Result, error) {
		return &runner.Result{Command: spec.Command, ExitCode: code, Output: []byte(output)}, nil
	}
}

var linux = platform.Platform{OS: platform.Linux, Arch: "x86_64"}

// installRoot creates an install root holding the named executables.
func installRoot(t *testing.T, tools ...string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, tool := range tools {
		if err := os.WriteFile(filepath.Join(root, "bin", tool), []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatalf("write %s: %v", tool, err)
		}
	}
	return root
}

func writeScene(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	return path
}

type fixture struct {
	launcher *fakeLauncher
	root     string
	tmp      string
	dir      string
	orch     *Orchestrator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		launcher: &fakeLauncher{},
		root:     installRoot(t, "usdrecord", "usdcat"),
		tmp:      t.TempDir(),
		dir:      t.TempDir(),
	}
	base := []Option{
		WithLauncher(f.launcher),
		WithInstallRoot(f.root),
		WithTempDir(f.tmp),
		WithPlatform(linux),
		WithBaseEnv([]string{"PATH=/usr/bin", "LD_LIBRARY_PATH=/opt/lib", "HOME=/home/artist"}),
	}
	f.orch = New(append(base, opts...)...)
	return f
}

// leftovers lists what remains in the workspace parent.
func (f *fixture) leftovers(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.tmp)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

const cameraScene = `#usda 1.0
(
    upAxis = "Y"
)

def Xform "World"
{
    def Mesh "Ground"
    {
        point3f[] points = [(-1, 0, -1), (1, 0, -1), (1, 0, 1), (-1, 0, 1)]
    }
    def Mesh "Rock"
    {
        float3[] extent = [(0, 0, 0), (1, 1, 1)]
    }
    def Camera "ShotCam"
    {
    }
}

def Camera "Other"
{
}
`

const bareScene = `#usda 1.0
(
    upAxis = "Z"
)

def Xform "World"
{
    def Cube "Box"
    {
        double size = 4
        asset texture = @textures/box.png@
    }
}
`
