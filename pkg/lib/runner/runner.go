// Package runner starts subprocesses with an explicit environment, captures
// their combined output and tracks their status until they exit.
package runner

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/bsundman/nodle/pkg/lib"
	"github.com/bsundman/nodle/pkg/lib/output_storage"
)

var logger = lib.NewLogger("runner: ")

// Spec describes one subprocess invocation.
type Spec struct {
	lib.Command

	// Env is the complete environment of the child. Nil inherits the
	// environment of the current process.
	Env []string

	// Dir is the working directory; empty means the current directory.
	Dir string

	// Echo, when set, receives a live copy of the combined output.
	Echo io.Writer
}

// Limits are cgroup v2 settings applied to every process on linux when
// running as root. Zero values leave the controller untouched.
type Limits struct {
	CPUWeight  int
	IOWeight   int
	MemoryHigh int64
}

// SysProcAttr pairs the platform process attributes with a file that must be
// closed once the child has started.
type SysProcAttr struct {
	File *os.File
	Raw  *syscall.SysProcAttr
}

// Runner manages processes started by this library.
type Runner struct {
	mu        sync.RWMutex
	processes map[string]*processEntry
	limits    Limits
}

type processEntry struct {
	id      string
	command lib.Command
	cmd     *exec.Cmd

	// status fields
	mu       sync.RWMutex
	state    lib.ProcessState
	exitCode *int
	start    time.Time
	end      *time.Time
	waitErr  error

	// combined stdout/stderr (full replay)
	output *output_storage.OutputStorage
	pid    int
	done   chan struct{}
}

// Option configures a Runner.
type Option func(*Runner)

// WithLimits applies cgroup limits to every started process.
func WithLimits(l Limits) Option {
	return func(r *Runner) { r.limits = l }
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{processes: make(map[string]*processEntry)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Remove drops a stopped process from the table. Running processes are kept.
func (runner *Runner) Remove(id string) {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	pe := runner.processes[id]
	if pe == nil {
		return
	}
	select {
	case <-pe.done:
		delete(runner.processes, id)
	default:
	}
}
