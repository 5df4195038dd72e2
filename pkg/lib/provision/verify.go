package provision

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const verifyScript = `from pxr import Usd
print(".".join(str(v) for v in Usd.GetVersion()))
`

func (p *Provisioner) verify(ctx context.Context, res *InstallResult, pyVersion string) {
	p.console.Infof("Verifying USD installation...")
	t := res.Target

	python := p.python
	if res.Method == PackageInstall {
		python = t.VenvPython()
	}
	env := runtimeMapping(t, res.Method, pyVersion).Merge(p.env())

	out, err := p.launcher.Run(ctx, p.spec(env, python, "-c", verifyScript))
	switch {
	case err != nil:
		vf := &VerificationFailure{ExitCode: -1, Err: err}
		if out != nil {
			vf.ExitCode, vf.Output = out.ExitCode, string(out.Output)
		}
		res.VerifyErr = vf
	case !out.Success():
		res.VerifyErr = &VerificationFailure{ExitCode: out.ExitCode, Output: string(out.Output)}
	}
	if res.VerifyErr != nil {
		p.console.Failf("USD installation verification failed: %v", res.VerifyErr)
		return
	}

	res.Verified = true
	res.ReportedVersion = lastLine(string(out.Output))
	p.console.Successf("Successfully imported USD modules (version %s)", res.ReportedVersion)
	if !sameRelease(res.ReportedVersion, t.Version) {
		p.console.Warnf("Installed USD reports %s, expected %s", res.ReportedVersion, t.Version)
	}
}

// sameRelease compares a reported "0.24.8" tuple with a pinned "24.08".
func sameRelease(reported, pinned string) bool {
	r := releaseParts(reported)
	want := releaseParts(pinned)
	if len(r) < 2 || len(want) < 2 {
		return false
	}
	return r[len(r)-2] == want[len(want)-2] && r[len(r)-1] == want[len(want)-1]
}

func releaseParts(s string) []int {
	var parts []int
	for _, f := range strings.FieldsFunc(strings.Trim(s, "()"), func(r rune) bool { return r == '.' || r == ',' || r == ' ' }) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil
		}
		parts = append(parts, n)
	}
	return parts
}

// Summary is a one-line description of the result for console output.
func (r *InstallResult) Summary() string {
	status := "verified"
	if !r.Verified {
		status = "not verified"
	}
	return fmt.Sprintf("USD %s (%s) in %s, %s", r.Target.Version, r.Method, r.Target.Root, status)
}
