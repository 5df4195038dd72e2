package runner

import (
	"errors"
	"os/exec"
	"time"

	"github.com/bsundman/nodle/pkg/lib"
	"github.com/bsundman/nodle/pkg/lib/output_storage"
)

type StartResult struct {
	ID     string
	pid    int
	Status *lib.ProcessStatus
}

// Start starts a new process, returning its generated identifier and initial status.
func (runner *Runner) Start(spec Spec) (*StartResult, error) {
	if spec.Command.Command == "" {
		return nil, errors.New("command is required")
	}
	processId := lib.NewID()

	cmd := exec.Command(spec.Command.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	sysProcAttr, err := getSysProcAttr(processId, runner.limits)
	if err != nil {
		return nil, err
	}
	cmd.SysProcAttr = sysProcAttr.Raw

	output := output_storage.New()

	// cmd.Stdin is left nil, so it will use the null device
	cmd.Stdout = output.Writer(lib.Stdout)
	cmd.Stderr = output.Writer(lib.Stderr)

	pe := &processEntry{
		id:      processId,
		command: lib.Command{Command: spec.Command.Command, Args: append([]string(nil), spec.Args...)},
		cmd:     cmd,
		state:   lib.ProcessStateRunning,
		start:   time.Now(),
		output:  output,
		done:    make(chan struct{}),
	}

	logger.Printf("Starting process %s: %v", processId, pe.command.Argv())
	if err := cmd.Start(); err != nil {
		logger.Printf("Failed to start process %s: %v", processId, err)
		if sysProcAttr.File != nil {
			_ = sysProcAttr.File.Close()
		}
		output.Stop()
		_ = cleanupCgroup(processId)
		return nil, err
	}

	if sysProcAttr.File != nil {
		_ = sysProcAttr.File.Close()
	}

	pe.pid = cmd.Process.Pid

	runner.mu.Lock()
	runner.processes[processId] = pe
	runner.mu.Unlock()

	go pe.wait()

	status := pe.lockAndGetStatus()

	return &StartResult{ID: processId, pid: pe.pid, Status: &status}, nil
}

// wait reaps the process and records its final status.
func (pe *processEntry) wait() {
	logger.Printf("Waiting for process %s to finish", pe.id)
	err := pe.cmd.Wait()
	if err != nil {
		logger.Printf("Process %s finished with err: %s", pe.id, err)
	} else {
		logger.Printf("Process %s finished without error", pe.id)
	}

	pe.output.Stop()

	pe.mu.Lock()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			pe.exitCode = &code
		} else {
			pe.waitErr = err
		}
	} else {
		code := 0
		pe.exitCode = &code
	}
	now := time.Now()
	pe.end = &now
	pe.state = lib.ProcessStateStopped
	pe.mu.Unlock()

	close(pe.done)

	// Cleanup platform-specific resources
	_ = cleanupCgroup(pe.id)
}
