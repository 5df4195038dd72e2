package runner

import (
	"context"
	"fmt"

	"github.com/bsundman/nodle/pkg/lib"
)

// Result is the outcome of a synchronous Run.
type Result struct {
	ID      string
	Command lib.Command
	Status  lib.ProcessStatus

	// ExitCode is -1 when the process was killed by a signal or could not
	// be reaped normally.
	ExitCode int

	// Output is stdout and stderr interleaved in arrival order.
	Output []byte
}

// Success reports whether the process exited with code zero.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Wait blocks until the process exits. If ctx is cancelled first the process
// is stopped and ctx.Err() is returned together with the final status.
func (runner *Runner) Wait(ctx context.Context, id string) (*StatusResult, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return nil, err
	}

	select {
	case <-pe.done:
	case <-ctx.Done():
		logger.Printf("Context done for %s: %v", id, ctx.Err())
		if _, err := runner.Stop(id); err != nil {
			return nil, fmt.Errorf("stop %s: %w", id, err)
		}
		<-pe.done
		st := pe.lockAndGetStatus()
		return &StatusResult{Command: &pe.command, Status: &st}, ctx.Err()
	}

	st := pe.lockAndGetStatus()
	pe.mu.RLock()
	waitErr := pe.waitErr
	pe.mu.RUnlock()
	return &StatusResult{Command: &pe.command, Status: &st}, waitErr
}

// Run starts the process described by spec, waits for it to exit and returns
// its exit code and combined output. A non-zero exit is not an error; errors
// mean the process could not be started or waited on.
func (runner *Runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started, err := runner.Start(spec)
	if err != nil {
		return nil, err
	}
	defer runner.Remove(started.ID)

	pe, err := runner.getProcess(started.ID)
	if err != nil {
		return nil, err
	}

	echoed := make(chan struct{})
	if spec.Echo != nil {
		ch := pe.output.Subscribe(16)
		go func() {
			defer close(echoed)
			for c := range ch {
				_, _ = spec.Echo.Write(c.Data)
			}
		}()
	} else {
		close(echoed)
	}

	st, waitErr := runner.Wait(ctx, started.ID)
	<-echoed

	res := &Result{
		ID:       started.ID,
		Command:  pe.command,
		ExitCode: -1,
		Output:   pe.output.Bytes(),
	}
	if st != nil {
		res.Status = *st.Status
		if st.Status.ExitCode != nil {
			res.ExitCode = *st.Status.ExitCode
		}
	}
	return res, waitErr
}
