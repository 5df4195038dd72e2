package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bsundman/nodle/pkg/lib/environ"
	"github.com/bsundman/nodle/pkg/lib/platform"
	"github.com/bsundman/nodle/pkg/lib/runner"
)

func TestRenderAuthoredCamera(t *testing.T) {
	f := newFixture(t)
	scenePath := writeScene(t, f.dir, "shot.usda", cameraScene)
	output := filepath.Join(f.dir, "out", "shot.png")

	out := f.orch.Render(context.Background(), Request{ScenePath: scenePath, OutputPath: output, Width: 640})
	if !out.Success {
		t.Fatalf("render failed at %s: %v", out.Stage, out.Err)
	}
	if out.Camera != "/World/ShotCam" || out.CameraSource != CameraAuthored {
		t.Fatalf("camera = %s (%s), want /World/ShotCam (authored)", out.Camera, out.CameraSource)
	}
	if out.MeshCount != 2 {
		t.Fatalf("MeshCount = %d, want 2", out.MeshCount)
	}
	if f.launcher.count() != 1 {
		t.Fatalf("launches = %d, want 1", f.launcher.count())
	}

	spec := f.launcher.calls[0]
	if spec.Command.Command != platform.RendererPath(f.root) {
		t.Fatalf("executable = %s, want %s", spec.Command.Command, platform.RendererPath(f.root))
	}
	want := []string{
		out.ExportPath, output,
		"--imageWidth", "640",
		"--disableCameraLight",
		"--camera", "/World/ShotCam",
		"--renderer", "Storm",
		"--complexity", "high",
	}
	if diff := cmp.Diff(want, spec.Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if !out.OutputExists || out.OutputSize != int64(len(pngHeader)) || out.OutputFormat != "png" {
		t.Fatalf("output = exists %v size %d format %q", out.OutputExists, out.OutputSize, out.OutputFormat)
	}
	if out.ExitCode != 0 || out.Output != "rendered\n" {
		t.Fatalf("exit = %d output %q", out.ExitCode, out.Output)
	}
}

func TestRenderRequestedCameraIsVerbatim(t *testing.T) {
	f := newFixture(t)
	scenePath := writeScene(t, f.dir, "shot.usda", cameraScene)

	out := f.orch.Render(context.Background(), Request{
		ScenePath:  scenePath,
		OutputPath: filepath.Join(f.dir, "shot.png"),
		CameraPath: "/Does/Not/Exist",
		Renderer:   "embree",
		Complexity: "LOW",
	})
	if !out.Success {
		t.Fatalf("render failed at %s: %v", out.Stage, out.Err)
	}
	if out.CameraSource != CameraRequested {
		t.Fatalf("CameraSource = %s, want requested", out.CameraSource)
	}
	args := strings.Join(f.launcher.calls[0].Args, " ")
	for _, want := range []string{"--camera /Does/Not/Exist", "--renderer Embree", "--complexity low"} {
		if !strings.Contains(args, want) {
			t.Fatalf("args %q missing %q", args, want)
		}
	}
}

func TestRenderSyntheticCamera(t *testing.T) {
	f := newFixture(t)
	scenePath := writeScene(t, f.dir, "bare.usda", bareScene)

	out := f.orch.Render(context.Background(), Request{ScenePath: scenePath, OutputPath: filepath.Join(f.dir, "bare.png")})
	if !out.Success {
		t.Fatalf("render failed at %s: %v", out.Stage, out.Err)
	}
	if out.CameraSource != CameraSynthetic || out.Camera != "/NodleDefaultCamera" {
		t.Fatalf("camera = %s (%s), want /NodleDefaultCamera (synthetic)", out.Camera, out.CameraSource)
	}
	if !strings.Contains(strings.Join(f.launcher.calls[0].Args, " "), "--camera /NodleDefaultCamera") {
		t.Fatalf("synthetic camera not passed: %v", f.launcher.calls[0].Args)
	}
	exported := f.launcher.exported[0]
	if !strings.Contains(exported, `def Camera "NodleDefaultCamera"`) {
		t.Fatalf("exported layer has no camera prim:\n%s", exported)
	}
	wantAsset := "@" + filepath.ToSlash(filepath.Join(f.dir, "textures", "box.png")) + "@"
	if !strings.Contains(exported, wantAsset) {
		t.Fatalf("exported layer does not anchor assets, want %s in:\n%s", wantAsset, exported)
	}
}

func TestRenderEnvironment(t *testing.T) {
	f := newFixture(t)
	scenePath := writeScene(t, f.dir, "shot.usda", cameraScene)

	out := f.orch.Render(context.Background(), Request{ScenePath: scenePath, OutputPath: filepath.Join(f.dir, "shot.png")})
	if !out.Success {
		t.Fatalf("render failed: %v", out.Err)
	}
	got := map[string]string{}
	for _, name := range []string{"USD_INSTALL_ROOT", "PXR_PLUGINPATH_NAME", "PYTHONPATH", "LD_LIBRARY_PATH", "PATH", "HOME"} {
		v, _ := environ.Lookup(f.launcher.calls[0].Env, name)
		got[name] = v
	}
	want := map[string]string{
		"USD_INSTALL_ROOT":    f.root,
		"PXR_PLUGINPATH_NAME": filepath.Join(f.root, "plugin"),
		"PYTHONPATH":          filepath.Join(f.root, "lib", "python"),
		"LD_LIBRARY_PATH":     "/opt/lib:" + filepath.Join(f.root, "lib"),
		"PATH":                "/usr/bin",
		"HOME":                "/home/artist",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("environment mismatch (-want +got):\n%s", diff)
	}
	if os.Getenv("USD_INSTALL_ROOT") == f.root {
		t.Fatalf("render modified the process environment")
	}
}

func TestRenderUnreadableSceneLaunchesNothing(t *testing.T) {
	cases := map[string]string{
		"missing":  "",
		"garbage":  "#usda 1.0\ndef Xform \"World\" {\n",
		"not usda": "hello world\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			scenePath := filepath.Join(f.dir, "scene.usda")
			if content != "" {
				writeScene(t, f.dir, "scene.usda", content)
			}
			out := f.orch.Render(context.Background(), Request{ScenePath: scenePath, OutputPath: filepath.Join(f.dir, "x.png")})
			if out.Success || out.Stage != StageOpenScene {
				t.Fatalf("outcome = %v at %s, want failure at OPEN_SCENE", out.Success, out.Stage)
			}
			var openErr *SceneOpenError
			if !errors.As(out.Err, &openErr) {
				t.Fatalf("err = %T %v, want *SceneOpenError", out.Err, out.Err)
			}
			if f.launcher.count() != 0 || out.Launched {
				t.Fatalf("launches = %d, want 0", f.launcher.count())
			}
			if left := f.leftovers(t); len(left) != 0 {
				t.Fatalf("workspace left behind: %v", left)
			}
		})
	}
}

func TestRenderExitZeroWithoutOutputFails(t *testing.T) {
	f := newFixture(t)
	f.launcher.run = exitOnly(0, "nothing to do\n")
	scenePath := writeScene(t, f.dir, "shot.usda", cameraScene)
	output := filepath.Join(f.dir, "shot.png")

	out := f.orch.Render(context.Background(), Request{ScenePath: scenePath, OutputPath: output})
	if out.Success || out.Stage != StageVerifyOutput {
		t.Fatalf("outcome = %v at %s, want failure at VERIFY_OUTPUT", out.Success, out.Stage)
	}
	var procErr *RenderProcessFailure
	if !errors.As(out.Err, &procErr) || procErr.ExitCode != 0 {
		t.Fatalf("err = %v, want RenderProcessFailure with exit 0", out.Err)
	}
	if out.OutputExists {
		t.Fatalf("OutputExists = true")
	}
}

func TestRenderStaleOutputIsNotProduced(t *testing.T) {
	f := newFixture(t)
	f.launcher.run = exitOnly(0, "")
	scenePath := writeScene(t, f.dir, "shot.usda", cameraScene)
	output := filepath.Join(f.dir, "shot.png")
	if err := os.WriteFile(output, pngHeader, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(output, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out := f.orch.Render(context.Background(), Request{ScenePath: scenePath, OutputPath: output})
	if out.Success || out.Stage != StageVerifyOutput {
		t.Fatalf("outcome = %v at %s, want failure at VERIFY_OUTPUT", out.Success, out.Stage)
	}
}

func TestRenderNonZeroExit(t *testing.T) {
	f := newFixture(t)
	f.launcher.run = exitOnly(3, "Error: renderer plugin not found\n")
	scenePath := writeScene(t, f.dir, "shot.usda", cameraScene)

	out := f.orch.Render(context.Background(), Request{ScenePath: scenePath, OutputPath: filepath.Join(f.dir, "shot.png")})
	if out.Success || out.ExitCode != 3 {
		t.Fatalf("outcome = %v exit %d, want failure with exit 3", out.Success, out.ExitCode)
	}
	var procErr *RenderProcessFailure
	if !errors.As(out.Err, &procErr) {
		t.Fatalf("err = %T, want *RenderProcessFailure", out.Err)
	}
	if procErr.Output != "Error: renderer plugin not found\n" {
		t.Fatalf("Output = %q, want renderer output verbatim", procErr.Output)
	}
}

func TestRenderMissingRenderer(t *testing.T) {
	f := newFixture(t)
	f.orch.installRoot = installRoot(t)
	scenePath := writeScene(t, f.dir, "shot.usda", cameraScene)

	out := f.orch.Render(context.Background(), Request{ScenePath: scenePath, OutputPath: filepath.Join(f.dir, "shot.png")})
	var notFound *RendererNotFoundError
	if !errors.As(out.Err, &notFound) || out.Stage != StageLocateRenderer {
		t.Fatalf("err = %v at %s, want RendererNotFoundError at LOCATE_RENDERER", out.Err, out.Stage)
	}
	if notFound.Path != platform.RendererPath(f.orch.installRoot) {
		t.Fatalf("Path = %s", notFound.Path)
	}
	if f.launcher.count() != 0 {
		t.Fatalf("launches = %d, want 0", f.launcher.count())
	}
	if left := f.leftovers(t); len(left) != 0 {
		t.Fatalf("workspace left behind: %v", left)
	}
}

func TestRenderStartFailure(t *testing.T) {
	f := newFixture(t)
	f.launcher.run = func(context.Context, runner.Spec) (*runner.Result, error) {
		return nil, errors.New("exec format error")
	}
	scenePath := writeScene(t, f.dir, "shot.usda", cameraScene)

	out := f.orch.Render(context.Background(), Request{ScenePath: scenePath, OutputPath: filepath.Join(f.dir, "shot.png")})
	if out.Success || out.Stage != StageLaunch || out.Launched {
		t.Fatalf("outcome = %v at %s launched %v, want failure at LAUNCH", out.Success, out.Stage, out.Launched)
	}
}

func TestRenderTimeout(t *testing.T) {
	f := newFixture(t, WithTimeout(20*time.Millisecond))
	f.launcher.run = func(ctx context.Context, spec runner.Spec) (*runner.Result, error) {
		<-ctx.Done()
		return &runner.Result{Command: spec.Command, ExitCode: -1}, ctx.Err()
	}
	scenePath := writeScene(t, f.dir, "shot.usda", cameraScene)

	out := f.orch.Render(context.Background(), Request{ScenePath: scenePath, OutputPath: filepath.Join(f.dir, "shot.png")})
	if out.Success || out.Stage != StageAwaitExit {
		t.Fatalf("outcome = %v at %s, want failure at AWAIT_EXIT", out.Success, out.Stage)
	}
	var procErr *RenderProcessFailure
	if !errors.As(out.Err, &procErr) || !strings.Contains(procErr.Reason, "timed out") {
		t.Fatalf("err = %v, want timeout failure", out.Err)
	}
	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Fatalf("err does not wrap DeadlineExceeded: %v", out.Err)
	}
	if left := f.leftovers(t); len(left) != 0 {
		t.Fatalf("workspace left behind: %v", left)
	}
}

func TestRenderCancelled(t *testing.T) {
	f := newFixture(t)
	f.launcher.run = func(ctx context.Context, spec runner.Spec) (*runner.Result, error) {
		return &runner.Result{Command: spec.Command, ExitCode: -1}, ctx.Err()
	}
	scenePath := writeScene(t, f.dir, "shot.usda", cameraScene)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := f.orch.Render(ctx, Request{ScenePath: scenePath, OutputPath: filepath.Join(f.dir, "shot.png")})
	if !errors.Is(out.Err, context.Canceled) || out.Stage != StageAwaitExit {
		t.Fatalf("err = %v at %s, want cancellation at AWAIT_EXIT", out.Err, out.Stage)
	}
}

func TestRenderWorkspacesAreUniqueAndRemoved(t *testing.T) {
	f := newFixture(t)
	scenePath := writeScene(t, f.dir, "shot.usda", cameraScene)

	var paths []string
	for i := 0; i < 3; i++ {
		out := f.orch.Render(context.Background(), Request{ScenePath: scenePath, OutputPath: filepath.Join(f.dir, "shot.png")})
		if !out.Success {
			t.Fatalf("render %d failed: %v", i, out.Err)
		}
		paths = append(paths, out.ExportPath)
		if _, err := os.Stat(out.ExportPath); !os.IsNotExist(err) {
			t.Fatalf("export %s still exists: %v", out.ExportPath, err)
		}
	}
	seen := map[string]bool{}
	for _, p := range paths {
		if seen[p] {
			t.Fatalf("export path %s reused", p)
		}
		seen[p] = true
		if !strings.HasPrefix(p, f.tmp) {
			t.Fatalf("export %s outside %s", p, f.tmp)
		}
	}
	if left := f.leftovers(t); len(left) != 0 {
		t.Fatalf("workspace left behind: %v", left)
	}
}

func TestRenderInvalidRequest(t *testing.T) {
	f := newFixture(t)
	out := f.orch.Render(context.Background(), Request{ScenePath: "a.usda", OutputPath: "a.png", Complexity: "ultra"})
	var reqErr *RequestError
	if !errors.As(out.Err, &reqErr) || reqErr.Field != "complexity" {
		t.Fatalf("err = %v, want complexity RequestError", out.Err)
	}
	if f.launcher.count() != 0 {
		t.Fatalf("launches = %d, want 0", f.launcher.count())
	}
}

func TestRenderConvertsCrate(t *testing.T) {
	f := newFixture(t)
	crate := filepath.Join(f.dir, "shot.usdc")
	if err := os.WriteFile(crate, []byte("PXR-USDC\x00\x00binary"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.launcher.run = func(_ context.Context, spec runner.Spec) (*runner.Result, error) {
		if spec.Command.Command == platform.ConverterPath(f.root) {
			if err := os.WriteFile(spec.Args[3], []byte(bareScene), 0o644); err != nil {
				return nil, err
			}
			return &runner.Result{Command: spec.Command}, nil
		}
		return writeOutput(spec, 0)
	}

	out := f.orch.Render(context.Background(), Request{ScenePath: crate, OutputPath: filepath.Join(f.dir, "shot.png")})
	if !out.Success {
		t.Fatalf("render failed at %s: %v", out.Stage, out.Err)
	}
	if f.launcher.count() != 2 {
		t.Fatalf("launches = %d, want usdcat then usdrecord", f.launcher.count())
	}
	convert := f.launcher.calls[0].Args
	if diff := cmp.Diff([]string{crate, "--flatten", "-o", convert[3]}, convert); diff != "" {
		t.Fatalf("usdcat args mismatch (-want +got):\n%s", diff)
	}
	wantAsset := "@" + filepath.ToSlash(filepath.Join(f.dir, "textures", "box.png")) + "@"
	if !strings.Contains(f.launcher.exported[1], wantAsset) {
		t.Fatalf("converted layer not anchored at the source directory:\n%s", f.launcher.exported[1])
	}
	if left := f.leftovers(t); len(left) != 0 {
		t.Fatalf("workspace left behind: %v", left)
	}
}

func TestRenderCrateWithoutConverter(t *testing.T) {
	f := newFixture(t)
	f.orch.installRoot = installRoot(t, "usdrecord")
	crate := filepath.Join(f.dir, "shot.usdc")
	if err := os.WriteFile(crate, []byte("PXR-USDC\x00\x00binary"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := f.orch.Render(context.Background(), Request{ScenePath: crate, OutputPath: filepath.Join(f.dir, "shot.png")})
	if out.Stage != StageOpenScene || f.launcher.count() != 0 {
		t.Fatalf("stage %s launches %d, want OPEN_SCENE with no launches", out.Stage, f.launcher.count())
	}
}

func TestRenderAll(t *testing.T) {
	f := newFixture(t)
	good := writeScene(t, f.dir, "shot.usda", cameraScene)
	reqs := []Request{
		{ScenePath: good, OutputPath: filepath.Join(f.dir, "a.png")},
		{ScenePath: filepath.Join(f.dir, "missing.usda"), OutputPath: filepath.Join(f.dir, "b.png")},
		{ScenePath: good, OutputPath: filepath.Join(f.dir, "c.png")},
	}
	outcomes := f.orch.RenderAll(context.Background(), reqs)
	var got []bool
	for _, o := range outcomes {
		got = append(got, o.Success)
	}
	if diff := cmp.Diff([]bool{true, false, true}, got); diff != "" {
		t.Fatalf("successes mismatch (-want +got):\n%s", diff)
	}
	if f.launcher.count() != 2 {
		t.Fatalf("launches = %d, want 2", f.launcher.count())
	}
}

func TestProduced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	before, _ := os.Stat(path)
	if produced(before, before) {
		t.Fatalf("unchanged file reported as produced")
	}
	if !produced(nil, before) {
		t.Fatalf("new file not reported as produced")
	}
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	after, _ := os.Stat(path)
	if !produced(before, after) {
		t.Fatalf("rewritten file not reported as produced")
	}
	dirInfo, _ := os.Stat(dir)
	if produced(nil, dirInfo) {
		t.Fatalf("directory reported as produced")
	}
}

func TestStageNames(t *testing.T) {
	if StageOpenScene.String() != "OPEN_SCENE" || StageCleanup.String() != "CLEANUP" {
		t.Fatalf("unexpected stage names %s %s", StageOpenScene, StageCleanup)
	}
	if Stage(42).String() != "Stage(42)" {
		t.Fatalf("out of range stage = %s", Stage(42))
	}
}
