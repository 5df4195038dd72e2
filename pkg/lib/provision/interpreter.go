package provision

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	MinimumPython    = "3.8"
	MaxTestedPython  = "3.13"
	pythonVersionArg = "--version"
)

var (
	supported = mustConstraint(">= " + MinimumPython)
	untested  = mustConstraint(">= " + MaxTestedPython)

	versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)
)

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

type pythonVersion struct {
	*semver.Version
}

func (v pythonVersion) majorMinor() string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}

// parsePythonVersion extracts the release from "Python 3.11.4" style output.
// Pre-release suffixes are dropped so they compare as their release.
func parsePythonVersion(out string) (pythonVersion, error) {
	m := versionPattern.FindString(strings.TrimSpace(out))
	if m == "" {
		return pythonVersion{}, fmt.Errorf("unrecognised interpreter version %q", strings.TrimSpace(out))
	}
	v, err := semver.NewVersion(m)
	if err != nil {
		return pythonVersion{}, err
	}
	return pythonVersion{v}, nil
}

func (p *Provisioner) checkInterpreter(ctx context.Context) (pythonVersion, error) {
	res, err := p.launcher.Run(ctx, p.spec(nil, p.python, pythonVersionArg))
	if err != nil {
		return pythonVersion{}, &PrerequisiteError{Minimum: MinimumPython, Err: err}
	}
	if !res.Success() {
		return pythonVersion{}, &PrerequisiteError{
			Minimum: MinimumPython,
			Err:     fmt.Errorf("%s %s exited with code %d", p.python, pythonVersionArg, res.ExitCode),
		}
	}
	v, err := parsePythonVersion(string(res.Output))
	if err != nil {
		return pythonVersion{}, &PrerequisiteError{Minimum: MinimumPython, Err: err}
	}
	if !supported.Check(v.Version) {
		p.console.Failf("Python %s or higher is required for USD", MinimumPython)
		return pythonVersion{}, &PrerequisiteError{Found: v.String(), Minimum: MinimumPython}
	}
	if untested.Check(v.Version) {
		p.console.Warnf("Python %s+ may not be fully supported by USD yet (found %s)", MaxTestedPython, v)
	}
	p.console.Infof("Python: %s", v)
	return v, nil
}

// FindPython resolves the host interpreter: override when set, otherwise
// python3 and then python from PATH.
func FindPython(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", &PrerequisiteError{Minimum: MinimumPython, Err: errors.New("no python interpreter found in PATH")}
}
