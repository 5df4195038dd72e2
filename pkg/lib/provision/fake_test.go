package provision

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/bsundman/nodle/pkg/lib/runner"
)

// fakeLauncher records every spec and answers from a table. A key matches
// when an argv element equals it, starts with it or ends with it.
type fakeLauncher struct {
	mu      sync.Mutex
	calls   []runner.Spec
	answers map[string]*runner.Result
	fail    map[string]error
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		answers: map[string]*runner.Result{
			"--version": {ExitCode: 0, Output: []byte("Python 3.11.4\n")},
			"-c":        {ExitCode: 0, Output: []byte("0.24.8\n")},
		},
		fail: map[string]error{},
	}
}

func (f *fakeLauncher) answer(match string, code int, output string) {
	f.answers[match] = &runner.Result{ExitCode: code, Output: []byte(output)}
}

func (f *fakeLauncher) Run(_ context.Context, spec runner.Spec) (*runner.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, spec)
	argv := spec.Argv()
	for match, err := range f.fail {
		if matches(argv, match) {
			return nil, err
		}
	}
	for match, res := range f.answers {
		if matches(argv, match) {
			r := *res
			r.Command = spec.Command
			return &r, nil
		}
	}
	return &runner.Result{Command: spec.Command, ExitCode: 0}, nil
}

func matches(argv []string, key string) bool {
	for _, a := range argv {
		if strings.HasPrefix(a, key) || strings.HasSuffix(a, key) {
			return true
		}
	}
	return false
}

func (f *fakeLauncher) argvs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Argv()
	}
	return out
}

type fakeRepo struct {
	local    string
	present  bool
	getErr   error
	checkErr error

	gets     int
	versions []string
}

func (r *fakeRepo) CheckLocal() bool { return r.present }
func (r *fakeRepo) LocalPath() string { return r.local }

func (r *fakeRepo) Get() error {
	r.gets++
	if r.getErr != nil {
		return r.getErr
	}
	r.present = true
	return nil
}

func (r *fakeRepo) UpdateVersion(v string) error {
	r.versions = append(r.versions, v)
	return r.checkErr
}

var errNoGit = errors.New("git: command not found")
