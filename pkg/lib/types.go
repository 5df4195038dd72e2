package lib

import (
	"strings"
	"time"
)

// ProcessState is the lifecycle state of a subprocess tracked by the runner.
type ProcessState int

const (
	ProcessStateUnspecified ProcessState = iota
	ProcessStateRunning
	ProcessStateStopped
)

func (s ProcessState) String() string {
	switch s {
	case ProcessStateRunning:
		return "Running"
	case ProcessStateStopped:
		return "Stopped"
	default:
		return "Unspecified"
	}
}

// Stream identifies which pipe of a subprocess produced a chunk of output.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Command captures command metadata used to start a process.
type Command struct {
	Command string
	Args    []string
}

// Argv returns the command followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Command}, c.Args...)
}

// String joins the argv with spaces for display. It is not shell quoted.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// ProcessStatus captures runtime state and timestamps.
type ProcessStatus struct {
	State     ProcessState
	ExitCode  *int
	StartTime time.Time
	EndTime   *time.Time
}

// Duration returns how long the process ran, or zero while it is still running.
func (st ProcessStatus) Duration() time.Duration {
	if st.EndTime == nil {
		return 0
	}
	return st.EndTime.Sub(st.StartTime)
}
