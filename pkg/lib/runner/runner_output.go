package runner

import "github.com/bsundman/nodle/pkg/lib/output_storage"

// Output subscribes to the combined output of a process. The channel replays
// everything written so far and closes after the process exits.
func (runner *Runner) Output(id string) (<-chan output_storage.Chunk, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return nil, err
	}

	logger.Printf("Start subscription to output for %s", id)
	return pe.output.Subscribe(16), nil
}
