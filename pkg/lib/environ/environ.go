// Package environ models the runtime environment of the installed library as
// an explicit mapping that is merged onto a base environment per subprocess,
// and renders it as activation scripts.
package environ

import (
	"path/filepath"
	"strings"

	"github.com/bsundman/nodle/pkg/lib/platform"
)

// Op says how a variable combines with an inherited value.
type Op int

const (
	Set Op = iota
	Prepend
	Append
)

func (o Op) String() string {
	switch o {
	case Prepend:
		return "prepend"
	case Append:
		return "append"
	default:
		return "set"
	}
}

// Var is one entry of a Mapping.
type Var struct {
	Name  string
	Value string
	Op    Op
}

// Mapping is an ordered list of variable operations. Several operations on
// the same name are applied in order.
type Mapping struct {
	// Separator joins list entries of PATH-like variables.
	Separator string
	// FoldCase matches names case-insensitively, as Windows does.
	FoldCase bool

	Vars []Var
}

// New returns an empty mapping with the conventions of p.
func New(p platform.Platform) *Mapping {
	return &Mapping{Separator: p.ListSeparator(), FoldCase: p.OS == platform.Windows}
}

func (m *Mapping) add(op Op, name, value string) *Mapping {
	m.Vars = append(m.Vars, Var{Name: name, Value: value, Op: op})
	return m
}

func (m *Mapping) Set(name, value string) *Mapping     { return m.add(Set, name, value) }
func (m *Mapping) Prepend(name, value string) *Mapping { return m.add(Prepend, name, value) }
func (m *Mapping) Append(name, value string) *Mapping  { return m.add(Append, name, value) }

// Names returns the distinct variable names in first-use order.
func (m *Mapping) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, v := range m.Vars {
		k := m.key(v.Name)
		if !seen[k] {
			seen[k] = true
			names = append(names, v.Name)
		}
	}
	return names
}

func (m *Mapping) key(name string) string {
	if m.FoldCase {
		return strings.ToUpper(name)
	}
	return name
}

// Merge applies the mapping on top of base (KEY=VALUE entries, as returned
// by os.Environ) and returns a new slice. base is not modified, and entries
// the mapping does not touch keep their position and value.
func (m *Mapping) Merge(base []string) []string {
	type entry struct {
		name  string
		value string
	}
	entries := make([]entry, 0, len(base)+len(m.Vars))
	index := make(map[string]int, len(base))

	for _, kv := range base {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		k := m.key(name)
		if i, dup := index[k]; dup {
			// Last duplicate wins, as with exec.Cmd.
			entries[i].value = value
			continue
		}
		index[k] = len(entries)
		entries = append(entries, entry{name: name, value: value})
	}

	for _, v := range m.Vars {
		k := m.key(v.Name)
		i, ok := index[k]
		if !ok {
			index[k] = len(entries)
			entries = append(entries, entry{name: v.Name, value: v.Value})
			continue
		}
		cur := entries[i].value
		switch {
		case v.Op == Set || cur == "":
			entries[i].value = v.Value
		case v.Op == Prepend:
			entries[i].value = v.Value + m.Separator + cur
		case v.Op == Append:
			entries[i].value = cur + m.Separator + v.Value
		}
	}

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name + "=" + e.value
	}
	return out
}

// Lookup returns the value of name in a KEY=VALUE list.
func Lookup(env []string, name string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(env[i], "=")
		if ok && k == name {
			return v, true
		}
	}
	return "", false
}

// ForInstall is the mapping exported by the activation scripts. pythonVersion
// is "major.minor"; when withVenv is set the virtual environment's
// executables and site-packages are included.
func ForInstall(t platform.InstallTarget, pythonVersion string, withVenv bool) *Mapping {
	m := New(t.Platform).
		Set("NODLE_USD_ROOT", t.Root).
		Set("USD_INSTALL_ROOT", t.Root).
		Set("PXR_PLUGINPATH_NAME", t.PluginDir()).
		Prepend("PYTHONPATH", t.PythonDir()).
		Prepend("PATH", t.BinDir())
	if withVenv {
		m.Prepend("PYTHONPATH", t.SitePackages(pythonVersion)).
			Prepend("PATH", t.VenvBinDir())
	}
	return m.Append(t.Platform.LoaderPathVar(), t.LibDir())
}

// ForRenderer is the mapping layered onto every renderer subprocess.
func ForRenderer(p platform.Platform, root string) *Mapping {
	return New(p).
		Set("USD_INSTALL_ROOT", root).
		Set("PXR_PLUGINPATH_NAME", filepath.Join(root, "plugin")).
		Set("PYTHONPATH", filepath.Join(root, "lib", "python")).
		Append(p.LoaderPathVar(), filepath.Join(root, "lib"))
}
