// Package platform detects the host and computes where the USD library is
// installed for a project.
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

type OS string

const (
	MacOS   OS = "macos"
	Linux   OS = "linux"
	Windows OS = "windows"
)

// Platform is an OS family and machine architecture.
type Platform struct {
	OS   OS
	Arch string
}

// Detect returns the host platform.
func Detect() (Platform, error) {
	return FromGOOS(runtime.GOOS, machine())
}

// FromGOOS maps a Go OS name to a supported platform.
func FromGOOS(goos, arch string) (Platform, error) {
	arch = strings.ToLower(arch)
	switch goos {
	case "darwin":
		return Platform{OS: MacOS, Arch: arch}, nil
	case "linux":
		return Platform{OS: Linux, Arch: arch}, nil
	case "windows":
		return Platform{OS: Windows, Arch: arch}, nil
	}
	return Platform{}, fmt.Errorf("unsupported platform: %s", goos)
}

func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// LoaderPathVar is the variable the dynamic loader searches for shared libraries.
func (p Platform) LoaderPathVar() string {
	switch p.OS {
	case MacOS:
		return "DYLD_LIBRARY_PATH"
	case Windows:
		return "PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

// ListSeparator separates entries of PATH-like variables.
func (p Platform) ListSeparator() string {
	if p.OS == Windows {
		return ";"
	}
	return ":"
}

// ExeSuffix is appended to executable names.
func (p Platform) ExeSuffix() string {
	if p.OS == Windows {
		return ".exe"
	}
	return ""
}
