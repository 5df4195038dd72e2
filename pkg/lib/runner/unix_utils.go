//go:build !linux && !windows

package runner

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func getSysProcAttr(id string, limits Limits) (*SysProcAttr, error) {
	return &SysProcAttr{
		Raw: &syscall.SysProcAttr{
			// New process group to manage children as a unit
			Setpgid: true,
		}}, nil
}

func killProcessTree(id string, pid int, _ *os.Process) error {
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		return err
	}
	return nil
}

func cleanupCgroup(id string) error {
	return nil
}
