package runner

import (
	"time"

	"github.com/bsundman/nodle/pkg/lib"
)

// stopGrace bounds how long Stop waits for the process to be reaped.
const stopGrace = time.Second

// StopResult returns process info and its final status after Stop.
type StopResult struct {
	Command *lib.Command
	Status  *lib.ProcessStatus
}

// Stop kills the process and its children and returns the final status (or
// the current one if the process was already stopped or is slow to exit).
func (runner *Runner) Stop(id string) (*StopResult, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return nil, err
	}
	res := StopResult{Command: &pe.command}

	select {
	case <-pe.done:
		st := pe.lockAndGetStatus()
		res.Status = &st
		return &res, nil
	default:
	}

	logger.Printf("Stopping process %s", id)
	if err := killProcessTree(id, pe.pid, pe.cmd.Process); err != nil {
		return nil, err
	}

	select {
	case <-pe.done:
	case <-time.After(stopGrace):
		logger.Printf("Process %s still running after %s", id, stopGrace)
	}

	st := pe.lockAndGetStatus()
	res.Status = &st
	return &res, nil
}
