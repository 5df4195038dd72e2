package provision

import (
	"fmt"
	"os"

	"github.com/bsundman/nodle/pkg/lib/buildconfig"
	"github.com/bsundman/nodle/pkg/lib/environ"
	"github.com/bsundman/nodle/pkg/lib/platform"
)

// runtimeMapping is the environment that makes the install importable.
func runtimeMapping(t platform.InstallTarget, method Method, pyVersion string) *environ.Mapping {
	return environ.ForInstall(t, pyVersion, method == PackageInstall)
}

// pythonPath is the interpreter recorded for downstream builds. Source builds
// have no virtual environment, so the module directory is recorded instead.
func pythonPath(t platform.InstallTarget, method Method) string {
	if method == PackageInstall {
		return t.VenvPython()
	}
	return t.PythonDir()
}

func (p *Provisioner) writeArtifacts(t platform.InstallTarget, method Method, pyVersion string) ([]string, error) {
	m := runtimeMapping(t, method, pyVersion)

	if err := os.WriteFile(t.ShellScriptPath(), []byte(environ.ShellScript(m)), 0o755); err != nil {
		return nil, fmt.Errorf("write shell activation script: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(t.ShellScriptPath(), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(t.BatchScriptPath(), []byte(environ.BatchScript(m)), 0o644); err != nil {
		return nil, fmt.Errorf("write batch activation script: %w", err)
	}

	cfg := buildconfig.Config{Env: buildconfig.Env{
		NodleUSDRoot:  t.Root,
		USDPythonPath: pythonPath(t, method),
	}}
	if err := buildconfig.Write(t.BuildConfigPath(), cfg); err != nil {
		return nil, fmt.Errorf("write build config: %w", err)
	}

	logger.Printf("Wrote %s, %s, %s", t.ShellScriptPath(), t.BatchScriptPath(), t.BuildConfigPath())
	return []string{t.ShellScriptPath(), t.BatchScriptPath(), t.BuildConfigPath()}, nil
}
