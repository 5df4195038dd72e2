//go:build windows

package runner

import (
	"errors"
	"os"
	"syscall"
)

func getSysProcAttr(id string, limits Limits) (*SysProcAttr, error) {
	return &SysProcAttr{
		Raw: &syscall.SysProcAttr{
			CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
		}}, nil
}

func killProcessTree(id string, pid int, p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func cleanupCgroup(id string) error {
	return nil
}
