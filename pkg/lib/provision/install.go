package provision

import (
	"context"
	"fmt"
	"os"

	"github.com/bsundman/nodle/pkg/lib/platform"
)

// PackageName is the pip distribution of the library.
const PackageName = "usd-core"

// BuildFlags disable the optional parts of a source build.
var BuildFlags = []string{"--python", "--no-tests", "--no-examples", "--no-tutorials", "--no-docs", "--no-imaging"}

func (p *Provisioner) packageInstall(ctx context.Context, t platform.InstallTarget) error {
	env := p.env()
	steps := []struct {
		name string
		cmd  string
		args []string
	}{
		{"venv", p.python, []string{"-m", "venv", t.VenvDir()}},
		{"upgrade-pip", t.VenvPip(), []string{"install", "--upgrade", "pip"}},
		{"install", t.VenvPip(), []string{"install", PackageName + "==" + t.Version}},
	}
	for _, s := range steps {
		if err := p.run(ctx, s.name, p.spec(env, s.cmd, s.args...)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) buildFromSource(ctx context.Context, t platform.InstallTarget) error {
	p.console.Infof("Building USD from source in %s", t.SourceDir())
	repo, err := p.repos(platform.SourceRemote, t.SourceDir())
	if err != nil {
		return &InstallError{Step: "clone", ExitCode: -1, Err: err}
	}
	if !repo.CheckLocal() {
		logger.Printf("Cloning %s into %s", platform.SourceRemote, repo.LocalPath())
		if err := repo.Get(); err != nil {
			return &InstallError{Step: "clone", ExitCode: -1, Err: err}
		}
	}
	if err := repo.UpdateVersion(t.SourceTag()); err != nil {
		return &InstallError{Step: "checkout", ExitCode: -1, Err: fmt.Errorf("checkout %s: %w", t.SourceTag(), err)}
	}

	args := append([]string{t.BuildScript(), t.Root}, BuildFlags...)
	return p.run(ctx, "build", p.spec(p.env(), p.python, args...))
}

func ensureLayout(t platform.InstallTarget) error {
	for _, dir := range t.Layout() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
