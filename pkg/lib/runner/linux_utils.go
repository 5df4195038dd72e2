//go:build linux

package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	cgroupRoot = "/sys/fs/cgroup/nodle"
)

var (
	cgroupInitOnce sync.Once
	cgroupInitErr  error
)

// initCgroups initializes the cgroup root once per process.
// As non-root, this is a no-op.
func initCgroups() error {
	cgroupInitOnce.Do(func() {
		cgroupInitErr = initCgroupsImpl()
	})
	return cgroupInitErr
}

func initCgroupsImpl() error {
	if unix.Geteuid() != 0 {
		return nil
	}

	if err := os.MkdirAll(cgroupRoot, 0755); err != nil {
		return err
	}

	available, err := readControllerSet(filepath.Join(cgroupRoot, "cgroup.controllers"))
	if err != nil {
		return err
	}
	enabled, err := readControllerSet(filepath.Join(cgroupRoot, "cgroup.subtree_control"))
	if err != nil {
		return err
	}

	desired := []string{"cpu", "io", "memory"}
	var toAdd []string
	for _, ctrl := range desired {
		if available[ctrl] && !enabled[ctrl] {
			toAdd = append(toAdd, "+"+ctrl)
		}
	}
	if len(toAdd) > 0 {
		if err := writeString(filepath.Join(cgroupRoot, "cgroup.subtree_control"), strings.Join(toAdd, " ")); err != nil {
			return err
		}
	}
	return nil
}

func readControllerSet(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, f := range strings.Fields(string(data)) {
		set[strings.TrimPrefix(f, "+")] = true
	}
	return set, nil
}

// cgroupsEnabled reports whether limits are configured and we may apply them.
func cgroupsEnabled(l Limits) bool {
	return unix.Geteuid() == 0 && (l.CPUWeight > 0 || l.IOWeight > 0 || l.MemoryHigh > 0)
}

func getSysProcAttr(id string, limits Limits) (*SysProcAttr, error) {
	if !cgroupsEnabled(limits) {
		return &SysProcAttr{
			Raw: &syscall.SysProcAttr{
				// New process group to manage children as a unit
				Setpgid: true,
			},
		}, nil
	}

	if err := initCgroups(); err != nil {
		logger.Printf("cgroup init failed, continuing without limits: %v", err)
		return &SysProcAttr{Raw: &syscall.SysProcAttr{Setpgid: true}}, nil
	}

	cgPath, err := setupCgroupFor(id, limits)
	if err != nil {
		return nil, err
	}

	cGroupFile, err := os.Open(cgPath)
	if err != nil {
		return nil, err
	}

	return &SysProcAttr{
		File: cGroupFile,
		Raw: &syscall.SysProcAttr{
			Setpgid:     true,
			UseCgroupFD: true,
			CgroupFD:    int(cGroupFile.Fd()),
		},
	}, nil
}

// killProcessTree prefers cgroup.kill when the process has its own cgroup and
// falls back to killing the process group.
func killProcessTree(id string, pid int, _ *os.Process) error {
	cgDir := filepath.Join(cgroupRoot, id)
	if _, err := os.Stat(cgDir); err == nil {
		if err := writeString(filepath.Join(cgDir, "cgroup.kill"), "1"); err == nil {
			return nil
		}
	}
	// Negative pid addresses the whole process group.
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		return err
	}
	return nil
}

func cleanupCgroup(id string) error {
	cgDir := filepath.Join(cgroupRoot, id)
	if _, err := os.Stat(cgDir); err != nil {
		return nil
	}
	return os.Remove(cgDir)
}

func setupCgroupFor(processId string, limits Limits) (string, error) {
	processRoot := filepath.Join(cgroupRoot, processId)
	if err := os.MkdirAll(processRoot, 0755); err != nil {
		return "", err
	}

	if limits.CPUWeight > 0 && controllerEnabled(cgroupRoot, "cpu") {
		if err := writeString(filepath.Join(processRoot, "cpu.weight"), fmt.Sprint(limits.CPUWeight)); err != nil {
			return "", err
		}
	}
	if limits.IOWeight > 0 && controllerEnabled(cgroupRoot, "io") {
		if err := writeString(filepath.Join(processRoot, "io.weight"), fmt.Sprint(limits.IOWeight)); err != nil {
			return "", err
		}
	}
	if limits.MemoryHigh > 0 && controllerEnabled(cgroupRoot, "memory") {
		if err := writeString(filepath.Join(processRoot, "memory.high"), fmt.Sprint(limits.MemoryHigh)); err != nil {
			return "", err
		}
	}

	return processRoot, nil
}

func controllerEnabled(cgPath, controller string) bool {
	enabled, err := readControllerSet(filepath.Join(cgPath, "cgroup.subtree_control"))
	if err != nil {
		return false
	}
	return enabled[controller]
}

func writeString(path, val string) error {
	return os.WriteFile(path, []byte(val), 0644)
}
