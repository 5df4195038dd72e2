// Package render turns a scene file into an image by running the bundled
// usdrecord tool with a scoped environment and checking what it produced.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/h2non/filetype"

	"github.com/bsundman/nodle/pkg/lib"
	"github.com/bsundman/nodle/pkg/lib/console"
	"github.com/bsundman/nodle/pkg/lib/env"
	"github.com/bsundman/nodle/pkg/lib/environ"
	"github.com/bsundman/nodle/pkg/lib/platform"
	"github.com/bsundman/nodle/pkg/lib/runner"
	"github.com/bsundman/nodle/pkg/lib/scene"
)

var logger = lib.NewLogger("render: ")

// Stage is a step of a render. Stages run in declaration order and never
// repeat.
type Stage int

const (
	StageOpenScene Stage = iota
	StageResolveCamera
	StageExportTemp
	StageLocateRenderer
	StageLaunch
	StageAwaitExit
	StageVerifyOutput
	StageCleanup
)

var stageNames = [...]string{
	"OPEN_SCENE", "RESOLVE_CAMERA", "EXPORT_TEMP", "LOCATE_RENDERER",
	"LAUNCH", "AWAIT_EXIT", "VERIFY_OUTPUT", "CLEANUP",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// CameraSource says where the render camera came from.
type CameraSource int

const (
	CameraNone CameraSource = iota
	CameraRequested
	CameraAuthored
	CameraSynthetic
)

func (c CameraSource) String() string {
	switch c {
	case CameraRequested:
		return "requested"
	case CameraAuthored:
		return "authored"
	case CameraSynthetic:
		return "synthetic"
	}
	return "none"
}

// Launcher runs one subprocess to completion. *runner.Runner implements it.
type Launcher interface {
	Run(ctx context.Context, spec runner.Spec) (*runner.Result, error)
}

// Outcome is the result of one Render call.
type Outcome struct {
	Success bool
	// Stage is the stage that failed, or StageCleanup after a success.
	Stage Stage
	Err   error

	ExitCode int
	Output   string

	OutputExists bool
	OutputSize   int64
	OutputFormat string

	Camera       string
	CameraSource CameraSource
	MeshCount    int

	ExportPath string
	Command    []string
	Launched   bool
	Duration   time.Duration
}

func (o *Outcome) fail(stage Stage, err error) *Outcome {
	o.Success, o.Stage, o.Err = false, stage, err
	return o
}

// Orchestrator runs render requests. Requests share no state; concurrent
// calls each get their own workspace.
type Orchestrator struct {
	launcher    Launcher
	installRoot string
	baseEnv     []string
	console     *console.Console
	tempDir     string
	platform    platform.Platform
	timeout     time.Duration
	echo        io.Writer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLauncher(l Launcher) Option { return func(o *Orchestrator) { o.launcher = l } }

// WithInstallRoot overrides DefaultInstallRoot.
func WithInstallRoot(root string) Option { return func(o *Orchestrator) { o.installRoot = root } }

// WithBaseEnv sets the environment the renderer variables are layered onto.
// The default is the environment of the current process at each call.
func WithBaseEnv(env []string) Option { return func(o *Orchestrator) { o.baseEnv = env } }

func WithConsole(c *console.Console) Option { return func(o *Orchestrator) { o.console = c } }

// WithTempDir sets the parent of per-request workspaces.
func WithTempDir(dir string) Option { return func(o *Orchestrator) { o.tempDir = dir } }

func WithPlatform(p platform.Platform) Option { return func(o *Orchestrator) { o.platform = p } }

// WithTimeout bounds each render subprocess. Zero waits indefinitely.
func WithTimeout(d time.Duration) Option { return func(o *Orchestrator) { o.timeout = d } }

// WithEcho streams renderer output to w while it runs.
func WithEcho(w io.Writer) Option { return func(o *Orchestrator) { o.echo = w } }

// DefaultInstallRoot is $USD_INSTALL_ROOT, or vendor/usd below the working
// directory.
func DefaultInstallRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	root, err := env.Path("USD_INSTALL_ROOT", platform.DefaultInstallRoot(cwd))
	if err != nil {
		logger.Printf("USD_INSTALL_ROOT: %v", err)
		return platform.DefaultInstallRoot(cwd)
	}
	return root
}

func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{console: console.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	if o.launcher == nil {
		o.launcher = runner.NewRunner()
	}
	if o.installRoot == "" {
		o.installRoot = DefaultInstallRoot()
	}
	if o.platform.OS == "" {
		p, err := platform.Detect()
		if err != nil {
			p = platform.Platform{OS: platform.Linux, Arch: runtime.GOARCH}
		}
		o.platform = p
	}
	return o
}

// InstallRoot is the root the renderer is resolved from.
func (o *Orchestrator) InstallRoot() string { return o.installRoot }

// Environment is the renderer subprocess environment.
func (o *Orchestrator) Environment() []string {
	return environ.ForRenderer(o.platform, o.installRoot).Merge(o.base())
}

func (o *Orchestrator) base() []string {
	if o.baseEnv == nil {
		return os.Environ()
	}
	return o.baseEnv
}

// Render runs req through every stage. The temporary workspace is removed on
// every path out.
func (o *Orchestrator) Render(ctx context.Context, req Request) *Outcome {
	started := time.Now()
	out := &Outcome{ExitCode: -1}
	defer func() { out.Duration = time.Since(started) }()

	if err := req.Validate(); err != nil {
		return out.fail(StageOpenScene, err)
	}
	req = req.withDefaults()
	o.console.Infof("Starting Hydra render: %s -> %s", req.ScenePath, req.OutputPath)
	o.console.Infof("Resolution: %dx%d, Renderer: %s", req.Width, req.Height, req.Renderer)
	if req.Visible {
		o.console.Infof("--visible has no effect: usdrecord renders offscreen")
	}

	ws := &workspace{parent: o.tempDir}
	defer ws.cleanup()

	// OPEN_SCENE
	st, err := o.openScene(ctx, req.ScenePath, ws)
	if err != nil {
		o.console.Failf("Failed to load USD scene: %v", err)
		return out.fail(StageOpenScene, &SceneOpenError{Path: req.ScenePath, Err: err})
	}
	out.MeshCount = st.CountType("Mesh")
	o.console.Successf("Opened USD stage: %s", req.ScenePath)
	o.console.Infof("USD scene loaded: %d meshes found", out.MeshCount)

	// RESOLVE_CAMERA
	var synthetic *scene.CameraSpec
	switch cams := st.Cameras(); {
	case req.CameraPath != "":
		out.Camera, out.CameraSource = req.CameraPath, CameraRequested
	case len(cams) > 0:
		out.Camera, out.CameraSource = cams[0], CameraAuthored
		o.console.Successf("Found camera: %s", out.Camera)
	default:
		cam := st.SyntheticCamera(req.Width, req.Height)
		synthetic = &cam
		out.Camera, out.CameraSource = cam.Path(), CameraSynthetic
		o.console.Warnf("No cameras found in scene")
		o.console.Infof("Positioning camera %s at %v looking at %v", cam.Path(), cam.Placement.Eye, cam.Placement.Target)
	}

	// EXPORT_TEMP
	exportPath, err := ws.path("scene-" + lib.NewID() + ".usda")
	if err == nil {
		err = st.ExportFile(exportPath, scene.ExportOptions{Camera: synthetic})
	}
	if err != nil {
		return out.fail(StageExportTemp, &ExportError{Path: exportPath, Err: err})
	}
	out.ExportPath = exportPath
	logger.Printf("Exported stage to %s", exportPath)

	// LOCATE_RENDERER
	exe := platform.RendererPath(o.installRoot)
	if _, err := os.Stat(exe); err != nil {
		o.console.Failf("usdrecord not found at: %s", exe)
		return out.fail(StageLocateRenderer, &RendererNotFoundError{Path: exe})
	}

	// LAUNCH
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return out.fail(StageLaunch, &RenderProcessFailure{ExitCode: -1, Reason: "cannot create output directory", Err: err})
	}
	before, _ := os.Stat(req.OutputPath)

	spec := runner.Spec{
		Command: lib.Command{Command: exe, Args: Args(exportPath, req, out.Camera)},
		Env:     o.Environment(),
		Echo:    o.echo,
	}
	out.Command = spec.Argv()
	o.console.Infof("Command: %s", spec.Command)

	runCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	// AWAIT_EXIT
	out.Launched = true
	res, err := o.launcher.Run(runCtx, spec)
	if res != nil {
		out.ExitCode, out.Output = res.ExitCode, string(res.Output)
	}
	if err != nil {
		if runCtx.Err() != nil {
			reason := "render cancelled"
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				reason = fmt.Sprintf("render timed out after %s", o.timeout)
			}
			return out.fail(StageAwaitExit, &RenderProcessFailure{ExitCode: out.ExitCode, Output: out.Output, Reason: reason, Err: err})
		}
		out.Launched = res != nil
		return out.fail(StageLaunch, &RenderProcessFailure{ExitCode: out.ExitCode, Output: out.Output, Reason: "failed to start usdrecord", Err: err})
	}

	// VERIFY_OUTPUT
	if out.ExitCode != 0 {
		o.console.Failf("usdrecord failed with return code: %d", out.ExitCode)
		return out.fail(StageVerifyOutput, &RenderProcessFailure{
			ExitCode: out.ExitCode,
			Output:   out.Output,
			Reason:   fmt.Sprintf("usdrecord exited with code %d", out.ExitCode),
		})
	}
	after, err := os.Stat(req.OutputPath)
	if err != nil || !produced(before, after) {
		o.console.Failf("Output file not created: %s", req.OutputPath)
		return out.fail(StageVerifyOutput, &RenderProcessFailure{
			ExitCode: out.ExitCode,
			Output:   out.Output,
			Reason:   fmt.Sprintf("usdrecord exited 0 but did not write %s", req.OutputPath),
		})
	}
	out.OutputExists, out.OutputSize = true, after.Size()
	if kind, err := filetype.MatchFile(req.OutputPath); err == nil && kind != filetype.Unknown {
		out.OutputFormat = kind.Extension
	}
	o.console.Successf("usdrecord completed successfully")
	o.console.Infof("Output file size: %d bytes", out.OutputSize)

	out.Success, out.Stage = true, StageCleanup
	return out
}

// produced reports whether after is a file the renderer wrote, as opposed to
// one left over from before the launch.
func produced(before, after os.FileInfo) bool {
	if after == nil || after.IsDir() {
		return false
	}
	if before == nil {
		return true
	}
	return !after.ModTime().Equal(before.ModTime()) || after.Size() != before.Size()
}

// openScene reads the scene as text. Binary layers and packages are
// flattened to text with usdcat first; their assets stay anchored at the
// original location.
func (o *Orchestrator) openScene(ctx context.Context, path string, ws *workspace) (*scene.Stage, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	format, err := scene.Sniff(abs)
	if err != nil {
		return nil, err
	}
	switch format {
	case scene.FormatText:
		return scene.Open(abs)
	case scene.FormatCrate, scene.FormatPackage:
	default:
		return nil, fmt.Errorf("%s: %w", abs, scene.ErrNotText)
	}

	converter := platform.ConverterPath(o.installRoot)
	if _, err := os.Stat(converter); err != nil {
		return nil, fmt.Errorf("%s layer needs usdcat, not found at %s", format, converter)
	}
	flat, err := ws.path("source-" + lib.NewID() + ".usda")
	if err != nil {
		return nil, err
	}
	res, err := o.launcher.Run(ctx, runner.Spec{
		Command: lib.Command{Command: converter, Args: []string{abs, "--flatten", "-o", flat}},
		Env:     o.Environment(),
	})
	if err != nil {
		return nil, fmt.Errorf("convert %s layer: %w", format, err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("usdcat exited with code %d: %s", res.ExitCode, res.Output)
	}
	st, err := scene.Open(flat)
	if err != nil {
		return nil, err
	}
	st.AnchorDir = filepath.Dir(abs)
	return st, nil
}

// RenderAll renders reqs one after another and stops early only when ctx is
// cancelled.
func (o *Orchestrator) RenderAll(ctx context.Context, reqs []Request) []*Outcome {
	outcomes := make([]*Outcome, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, (&Outcome{ExitCode: -1}).fail(StageOpenScene, err))
			continue
		}
		outcomes = append(outcomes, o.Render(ctx, req))
	}
	return outcomes
}
