package provision

import (
	"fmt"
	"strings"
)

// PrerequisiteError means the host interpreter is missing or too old.
type PrerequisiteError struct {
	Found   string
	Minimum string
	Err     error
}

func (e *PrerequisiteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("python %s or newer is required: %v", e.Minimum, e.Err)
	}
	return fmt.Sprintf("python %s or newer is required, found %s", e.Minimum, e.Found)
}

func (e *PrerequisiteError) Unwrap() error { return e.Err }

// InstallError is returned when an installation step fails. Nothing after the
// failed step has run.
type InstallError struct {
	Step     string
	ExitCode int
	Output   string
	Err      error
}

func (e *InstallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("install step %q failed: %v", e.Step, e.Err)
	}
	msg := fmt.Sprintf("install step %q exited with code %d", e.Step, e.ExitCode)
	if out := lastLine(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *InstallError) Unwrap() error { return e.Err }

// VerificationFailure is recorded when the installed library cannot be
// imported. It is reported through InstallResult, never returned by Provision.
type VerificationFailure struct {
	ExitCode int
	Output   string
	Err      error
}

func (e *VerificationFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verification failed: %v", e.Err)
	}
	msg := fmt.Sprintf("verification exited with code %d", e.ExitCode)
	if out := lastLine(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *VerificationFailure) Unwrap() error { return e.Err }

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
