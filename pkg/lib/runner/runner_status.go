package runner

import (
	"os"

	"github.com/bsundman/nodle/pkg/lib"
)

type StatusResult struct {
	Command *lib.Command
	Status  *lib.ProcessStatus
}

// Status returns the current process and status by identifier.
func (runner *Runner) Status(id string) (*StatusResult, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return nil, err
	}

	status := pe.lockAndGetStatus()
	return &StatusResult{Command: &pe.command, Status: &status}, nil
}

func (runner *Runner) getProcess(id string) (*processEntry, error) {
	runner.mu.RLock()
	pe := runner.processes[id]
	runner.mu.RUnlock()
	if pe == nil {
		return nil, os.ErrNotExist
	}
	return pe, nil
}

func (pe *processEntry) lockAndGetStatus() lib.ProcessStatus {
	pe.mu.RLock()
	defer pe.mu.RUnlock()

	st := lib.ProcessStatus{State: pe.state, StartTime: pe.start}
	if pe.exitCode != nil {
		st.ExitCode = new(int)
		*st.ExitCode = *pe.exitCode
	}
	if pe.end != nil {
		t := *pe.end
		st.EndTime = &t
	}
	return st
}
