package platform

import (
	"errors"
	"fmt"
	"path/filepath"
)

// DefaultVersion is the pinned USD release every developer installs.
const DefaultVersion = "24.08"

// SourceRemote is the repository cloned for source builds.
const SourceRemote = "https://github.com/PixarAnimationStudios/OpenUSD.git"

// InstallTarget describes where one USD version is placed. It is computed
// once per provisioning run and never modified.
type InstallTarget struct {
	Platform    Platform
	Version     string
	ProjectRoot string
	Root        string
}

// DefaultInstallRoot is the install root used when nothing else is configured.
func DefaultInstallRoot(projectRoot string) string {
	return filepath.Join(projectRoot, "vendor", "usd")
}

// NewInstallTarget resolves the install target of version for a project.
func NewInstallTarget(p Platform, version, projectRoot string) (InstallTarget, error) {
	if version == "" {
		return InstallTarget{}, errors.New("version is required")
	}
	if !filepath.IsAbs(projectRoot) {
		return InstallTarget{}, fmt.Errorf("project root must be absolute: %q", projectRoot)
	}
	root := filepath.Clean(projectRoot)
	return InstallTarget{
		Platform:    p,
		Version:     version,
		ProjectRoot: root,
		Root:        DefaultInstallRoot(root),
	}, nil
}

func (t InstallTarget) BinDir() string    { return filepath.Join(t.Root, "bin") }
func (t InstallTarget) LibDir() string    { return filepath.Join(t.Root, "lib") }
func (t InstallTarget) PythonDir() string { return filepath.Join(t.Root, "lib", "python") }
func (t InstallTarget) PluginDir() string { return filepath.Join(t.Root, "plugin") }

// Layout lists the directories a finished install must contain.
func (t InstallTarget) Layout() []string {
	return []string{t.BinDir(), t.PythonDir(), t.PluginDir()}
}

func (t InstallTarget) VenvDir() string { return filepath.Join(t.Root, "venv") }

// VenvBinDir holds the virtual environment's executables.
func (t InstallTarget) VenvBinDir() string {
	if t.Platform.OS == Windows {
		return filepath.Join(t.VenvDir(), "Scripts")
	}
	return filepath.Join(t.VenvDir(), "bin")
}

func (t InstallTarget) VenvPython() string {
	return filepath.Join(t.VenvBinDir(), "python"+t.Platform.ExeSuffix())
}

func (t InstallTarget) VenvPip() string {
	return filepath.Join(t.VenvBinDir(), "pip"+t.Platform.ExeSuffix())
}

// SitePackages is the venv package directory for a "major.minor" interpreter.
func (t InstallTarget) SitePackages(pythonVersion string) string {
	if t.Platform.OS == Windows {
		return filepath.Join(t.VenvDir(), "Lib", "site-packages")
	}
	return filepath.Join(t.VenvDir(), "lib", "python"+pythonVersion, "site-packages")
}

// SourceDir is the fixed checkout location for source builds.
func (t InstallTarget) SourceDir() string {
	return filepath.Join(t.ProjectRoot, "vendor", "OpenUSD")
}

// SourceTag is the tag checked out for Version.
func (t InstallTarget) SourceTag() string { return "v" + t.Version }

// BuildScript is the library's own build driver inside the checkout.
func (t InstallTarget) BuildScript() string {
	return filepath.Join(t.SourceDir(), "build_scripts", "build_usd.py")
}

func (t InstallTarget) ShellScriptPath() string {
	return filepath.Join(t.ProjectRoot, "activate_usd.sh")
}

func (t InstallTarget) BatchScriptPath() string {
	return filepath.Join(t.ProjectRoot, "activate_usd.bat")
}

func (t InstallTarget) BuildConfigPath() string {
	return filepath.Join(t.ProjectRoot, ".cargo", "config.toml")
}

// RendererPath is the bundled command line renderer below an install root.
func RendererPath(root string) string {
	return filepath.Join(root, "bin", "usdrecord")
}

// ConverterPath is the bundled layer conversion tool below an install root.
func ConverterPath(root string) string {
	return filepath.Join(root, "bin", "usdcat")
}
