package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const scene = `#usda 1.0
(
    upAxis = "Y"
)

def Xform "World"
{
    def Cube "Box"
    {
        double size = 2
    }
}
`

// fakeUsdrecord writes a PNG signature to its output argument and records
// its arguments next to it.
const fakeUsdrecord = `#!/bin/sh
printf '\211PNG\r\n\032\n' > "$2"
echo "$@" > "$2.args"
echo "rendered $2"
`

func setupInstall(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script renderer")
	}
	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if script != "" {
		if err := os.WriteFile(filepath.Join(bin, "usdrecord"), []byte(script), 0o755); err != nil {
			t.Fatalf("write usdrecord: %v", err)
		}
	}
	t.Setenv("USD_INSTALL_ROOT", root)
	for _, key := range []string{"NODLE_RENDER_MEMORY_HIGH", "NODLE_RENDER_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRender(t *testing.T) {
	setupInstall(t, fakeUsdrecord)
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "shot.usda")
	if err := os.WriteFile(scenePath, []byte(scene), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	output := filepath.Join(dir, "renders", "shot.png")

	out, err := execute(t, scenePath, output, "--width", "320", "--renderer", "storm")
	if err != nil {
		t.Fatalf("usdrender: %v\n%s", err, out)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output not written: %v", err)
	}
	args, err := os.ReadFile(output + ".args")
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	for _, want := range []string{"--imageWidth 320", "--disableCameraLight", "--camera /NodleDefaultCamera", "--renderer Storm"} {
		if !strings.Contains(string(args), want) {
			t.Fatalf("renderer args %q missing %q", args, want)
		}
	}
	if !strings.Contains(out, "Hydra render completed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRenderFailureReturnsError(t *testing.T) {
	setupInstall(t, "#!/bin/sh\necho 'no delegate' >&2\nexit 2\n")
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "shot.usda")
	if err := os.WriteFile(scenePath, []byte(scene), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	_, err := execute(t, scenePath, filepath.Join(dir, "shot.png"))
	if err == nil || !strings.Contains(err.Error(), "VERIFY_OUTPUT") {
		t.Fatalf("err = %v, want failure at VERIFY_OUTPUT", err)
	}
	if !strings.Contains(err.Error(), "no delegate") {
		t.Fatalf("err does not carry renderer output: %v", err)
	}
}

func TestRenderMissingRenderer(t *testing.T) {
	setupInstall(t, "")
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "shot.usda")
	if err := os.WriteFile(scenePath, []byte(scene), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	out, err := execute(t, scenePath, filepath.Join(dir, "shot.png"))
	if err == nil || !strings.Contains(out, "usdrecord not found") {
		t.Fatalf("err = %v, output:\n%s", err, out)
	}
}

func TestArgsRequired(t *testing.T) {
	setupInstall(t, "")
	if _, err := execute(t, "only-one.usda"); err == nil {
		t.Fatalf("expected an error for a missing output argument")
	}
}

func TestListRenderers(t *testing.T) {
	setupInstall(t, "")
	t.Setenv("PXR_PLUGINPATH_NAME", "")
	out, err := execute(t, "--list-renderers")
	if err != nil {
		t.Fatalf("--list-renderers: %v", err)
	}
	if !strings.Contains(out, "  - Storm\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestBatch(t *testing.T) {
	setupInstall(t, fakeUsdrecord)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "shot.usda"), []byte(scene), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	manifest := filepath.Join(dir, "renders.yaml")
	content := `defaults:
  width: 64
renders:
  - scene: shot.usda
    output: out/a.png
  - scene: missing.usda
    output: out/b.png
`
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	out, err := execute(t, "batch", manifest)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 renders failed") {
		t.Fatalf("err = %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "a.png")); err != nil {
		t.Fatalf("first render missing: %v", err)
	}
	if !strings.Contains(out, "OPEN_SCENE") {
		t.Fatalf("summary does not name the failed stage:\n%s", out)
	}
}
