package render

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/bsundman/nodle/pkg/lib/environ"
)

// FallbackRenderers is reported when no render delegate plugin is found.
var FallbackRenderers = []string{DefaultRenderer}

const rendererBase = "HdRendererPlugin"

type plugInfo struct {
	Plugins  []plugin `json:"Plugins"`
	Includes []string `json:"Includes"`
}

type plugin struct {
	Name string `json:"Name"`
	Info struct {
		Types map[string]pluginType `json:"Types"`
	} `json:"Info"`
}

type pluginType struct {
	Bases       []string `json:"bases"`
	DisplayName string   `json:"displayName"`
	Priority    int      `json:"priority"`
}

// ListRenderers reports the render delegates registered below the install
// root and on the caller's PXR_PLUGINPATH_NAME, by display name where one is
// declared.
func (o *Orchestrator) ListRenderers() []string {
	dirs := []string{
		filepath.Join(o.installRoot, "plugin"),
		filepath.Join(o.installRoot, "lib", "usd"),
	}
	if v, ok := environ.Lookup(o.base(), "PXR_PLUGINPATH_NAME"); ok {
		dirs = append(dirs, filepath.SplitList(v)...)
	}
	names := ScanRenderers(dirs...)
	if len(names) == 0 {
		return FallbackRenderers
	}
	return names
}

// ScanRenderers walks dirs for plugInfo.json files, following Includes, and
// returns the renderer plugin names in discovery order without duplicates.
func ScanRenderers(dirs ...string) []string {
	s := &scanner{seen: map[string]bool{}, names: map[string]bool{}}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && d.Name() == "plugInfo.json" {
				s.file(path)
			}
			return nil
		})
	}
	return s.out
}

type scanner struct {
	seen  map[string]bool
	names map[string]bool
	out   []string
}

func (s *scanner) file(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if s.seen[path] {
		return
	}
	s.seen[path] = true

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Printf("Skipping %s: %v", path, err)
		return
	}
	var info plugInfo
	if err := json.Unmarshal(stripComments(data), &info); err != nil {
		logger.Printf("Skipping %s: %v", path, err)
		return
	}
	for _, p := range info.Plugins {
		for typeName, t := range p.Info.Types {
			if !hasBase(t.Bases, rendererBase) {
				continue
			}
			name := t.DisplayName
			if name == "" {
				name = typeName
			}
			if !s.names[name] {
				s.names[name] = true
				s.out = append(s.out, name)
			}
		}
	}

	dir := filepath.Dir(path)
	for _, inc := range info.Includes {
		pattern := inc
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(dir, pattern)
		}
		if strings.HasSuffix(inc, "/") {
			pattern = filepath.Join(pattern, "plugInfo.json")
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if fi, err := os.Stat(m); err == nil && fi.IsDir() {
				m = filepath.Join(m, "plugInfo.json")
			}
			s.file(m)
		}
	}
}

func hasBase(bases []string, want string) bool {
	for _, b := range bases {
		if b == want {
			return true
		}
	}
	return false
}

// stripComments drops the '#' line comments plugInfo files allow.
func stripComments(data []byte) []byte {
	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes()
}
