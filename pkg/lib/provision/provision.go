// Package provision installs a pinned USD release into a project, writes the
// activation scripts and build configuration pointing at it and verifies that
// the library can be imported.
package provision

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/vcs"

	"github.com/bsundman/nodle/pkg/lib"
	"github.com/bsundman/nodle/pkg/lib/console"
	"github.com/bsundman/nodle/pkg/lib/platform"
	"github.com/bsundman/nodle/pkg/lib/runner"
)

var logger = lib.NewLogger("provision: ")

// Method selects how the library is installed.
type Method int

const (
	PackageInstall Method = iota
	BuildFromSource
)

func (m Method) String() string {
	if m == BuildFromSource {
		return "build-from-source"
	}
	return "package-install"
}

// Launcher runs one subprocess to completion. *runner.Runner implements it.
type Launcher interface {
	Run(ctx context.Context, spec runner.Spec) (*runner.Result, error)
}

// SourceRepo is the source checkout used by BuildFromSource.
type SourceRepo interface {
	CheckLocal() bool
	Get() error
	UpdateVersion(version string) error
	LocalPath() string
}

// RepoFactory opens the checkout of remote at local.
type RepoFactory func(remote, local string) (SourceRepo, error)

func gitRepo(remote, local string) (SourceRepo, error) {
	return vcs.NewGitRepo(remote, local)
}

// InstallResult describes a finished provisioning run.
type InstallResult struct {
	Target        platform.InstallTarget
	Method        Method
	PythonVersion string

	// Verified is false when the post-install import failed; VerifyErr then
	// holds a *VerificationFailure. The install is left in place either way.
	Verified        bool
	ReportedVersion string
	VerifyErr       error

	Artifacts []string
}

// Provisioner installs USD for one project.
type Provisioner struct {
	platform    platform.Platform
	projectRoot string
	python      string
	launcher    Launcher
	repos       RepoFactory
	console     *console.Console
	baseEnv     []string
	echo        io.Writer
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithPython sets the host interpreter. The default is "python3".
func WithPython(path string) Option { return func(p *Provisioner) { p.python = path } }

func WithLauncher(l Launcher) Option { return func(p *Provisioner) { p.launcher = l } }

func WithRepoFactory(f RepoFactory) Option { return func(p *Provisioner) { p.repos = f } }

func WithConsole(c *console.Console) Option { return func(p *Provisioner) { p.console = c } }

// WithBaseEnv sets the environment the runtime mapping is layered onto. The
// default is the environment of the current process.
func WithBaseEnv(env []string) Option { return func(p *Provisioner) { p.baseEnv = env } }

// WithEcho streams subprocess output to w while it runs.
func WithEcho(w io.Writer) Option { return func(p *Provisioner) { p.echo = w } }

// New returns a Provisioner for the project rooted at projectRoot.
func New(pl platform.Platform, projectRoot string, opts ...Option) *Provisioner {
	p := &Provisioner{
		platform:    pl,
		projectRoot: projectRoot,
		python:      "python3",
		repos:       gitRepo,
		console:     console.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.launcher == nil {
		p.launcher = runner.NewRunner()
	}
	return p
}

// Provision installs version with method. Prerequisite and install failures
// are returned as errors and leave no generated artifacts behind; a failed
// verification is reported in the result.
func (p *Provisioner) Provision(ctx context.Context, version string, method Method) (*InstallResult, error) {
	target, err := platform.NewInstallTarget(p.platform, version, p.projectRoot)
	if err != nil {
		return nil, err
	}
	logger.Printf("Provisioning %s via %s into %s", version, method, target.Root)

	py, err := p.checkInterpreter(ctx)
	if err != nil {
		return nil, err
	}
	res := &InstallResult{Target: target, Method: method, PythonVersion: py.String()}

	if err := os.MkdirAll(target.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create install root: %w", err)
	}

	p.console.Infof("Installing USD %s to %s", version, target.Root)
	switch method {
	case BuildFromSource:
		err = p.buildFromSource(ctx, target)
	default:
		err = p.packageInstall(ctx, target)
	}
	if err != nil {
		return nil, err
	}

	if err := ensureLayout(target); err != nil {
		return nil, err
	}
	res.Artifacts, err = p.writeArtifacts(target, method, py.majorMinor())
	if err != nil {
		return nil, err
	}

	p.verify(ctx, res, py.majorMinor())
	return res, nil
}

func (p *Provisioner) env() []string {
	if p.baseEnv != nil {
		return p.baseEnv
	}
	return os.Environ()
}

func (p *Provisioner) spec(env []string, name string, args ...string) runner.Spec {
	return runner.Spec{
		Command: lib.Command{Command: name, Args: args},
		Env:     env,
		Echo:    p.echo,
	}
}

// run executes one install step, turning every failure into an InstallError.
func (p *Provisioner) run(ctx context.Context, step string, spec runner.Spec) error {
	logger.Printf("Step %s: %v", step, spec.Argv())
	res, err := p.launcher.Run(ctx, spec)
	if err != nil {
		ie := &InstallError{Step: step, ExitCode: -1, Err: err}
		if res != nil {
			ie.ExitCode, ie.Output = res.ExitCode, string(res.Output)
		}
		return ie
	}
	if !res.Success() {
		return &InstallError{Step: step, ExitCode: res.ExitCode, Output: string(res.Output)}
	}
	return nil
}
