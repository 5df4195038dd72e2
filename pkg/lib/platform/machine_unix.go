//go:build !windows

package platform

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// machine reports the hardware name from uname, which unlike GOARCH reflects
// the host when a binary runs under emulation.
func machine() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return runtime.GOARCH
	}
	if m := unix.ByteSliceToString(u.Machine[:]); m != "" {
		return m
	}
	return runtime.GOARCH
}
