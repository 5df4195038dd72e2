// Package scene reads USD text layers far enough to find cameras, count
// geometry and bound the scene, and writes the adjusted layer used for a
// render.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"github.com/bsundman/nodle/pkg/lib"
)

var logger = lib.NewLogger("scene: ")

// Format is the on-disk encoding of a layer.
type Format int

const (
	FormatUnknown Format = iota
	FormatText
	FormatCrate
	FormatPackage
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "usda"
	case FormatCrate:
		return "usdc"
	case FormatPackage:
		return "usdz"
	}
	return "unknown"
}

// ErrNotText is returned by Open for binary layers and packages, which must
// be converted to text first.
var ErrNotText = errors.New("layer is not in text format")

const sniffLen = 512

// Sniff detects the format of the layer at path from its leading bytes.
func Sniff(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	return sniffBytes(head[:n], path), nil
}

func sniffBytes(head []byte, path string) Format {
	switch {
	case bytes.HasPrefix(head, []byte("#usda")):
		return FormatText
	case bytes.HasPrefix(head, []byte("PXR-USDC")):
		return FormatCrate
	}
	if kind, err := filetype.Match(head); err == nil && kind.Extension == "zip" {
		return FormatPackage
	}
	if strings.EqualFold(filepath.Ext(path), ".usdz") {
		return FormatPackage
	}
	return FormatUnknown
}

// Stage is an opened root layer.
type Stage struct {
	// Path is the file the layer was read from.
	Path string
	// AnchorDir resolves relative asset paths. It defaults to the
	// directory of Path.
	AnchorDir string
	Layer     *Layer
}

// Open reads and parses the text layer at path.
func Open(path string) (*Stage, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	if f := sniffBytes(data[:min(len(data), sniffLen)], abs); f != FormatText {
		return nil, fmt.Errorf("%s: %w (%s)", abs, ErrNotText, f)
	}
	st, err := Parse(abs, data)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Parse parses layer text. name is used in errors and as the anchor.
func Parse(name string, data []byte) (*Stage, error) {
	layer, err := parseLayer(name, string(data))
	if err != nil {
		return nil, err
	}
	st := &Stage{Path: name, AnchorDir: filepath.Dir(name), Layer: layer}
	logger.Printf("Parsed %s: %d root prims", name, len(layer.Prims))
	return st, nil
}

// UpAxis is the layer's up axis, "Y" when not authored.
func (s *Stage) UpAxis() string {
	if v, ok := s.Layer.Metadata["upAxis"]; ok {
		if t, ok := v.Text(); ok && (t == "Y" || t == "Z") {
			return t
		}
	}
	return "Y"
}

// DefaultPrim is the layer's defaultPrim metadata.
func (s *Stage) DefaultPrim() string {
	if v, ok := s.Layer.Metadata["defaultPrim"]; ok {
		t, _ := v.Text()
		return t
	}
	return ""
}

// traversable mirrors the default traversal predicate: active, defined and
// not abstract.
func traversable(p *Prim) bool {
	return p.Specifier == SpecifierDef && p.Active()
}

// Traverse visits traversable prims depth first in authored order. Returning
// false from fn skips the prim's children.
func (s *Stage) Traverse(fn func(p *Prim) bool) {
	var walk func(p *Prim)
	walk = func(p *Prim) {
		if !traversable(p) {
			return
		}
		if !fn(p) {
			return
		}
		for _, c := range p.Children {
			walk(c)
		}
	}
	for _, p := range s.Layer.Prims {
		walk(p)
	}
}

// Prims returns all traversable prims in traversal order.
func (s *Stage) Prims() []*Prim {
	var out []*Prim
	s.Traverse(func(p *Prim) bool {
		out = append(out, p)
		return true
	})
	return out
}

// Cameras returns the paths of camera prims in traversal order.
func (s *Stage) Cameras() []string {
	var out []string
	s.Traverse(func(p *Prim) bool {
		if p.IsA("Camera") {
			out = append(out, p.Path())
		}
		return true
	})
	return out
}

// CountType counts traversable prims of typeName.
func (s *Stage) CountType(typeName string) int {
	n := 0
	s.Traverse(func(p *Prim) bool {
		if p.IsA(typeName) {
			n++
		}
		return true
	})
	return n
}

// PrimAt finds a prim by absolute path, traversable or not.
func (s *Stage) PrimAt(path string) *Prim {
	names := strings.Split(strings.Trim(path, "/"), "/")
	if len(names) == 0 || names[0] == "" {
		return nil
	}
	var cur *Prim
	for _, p := range s.Layer.Prims {
		if p.Name == names[0] {
			cur = p
			break
		}
	}
	for _, n := range names[1:] {
		if cur == nil {
			return nil
		}
		cur = cur.Child(n)
	}
	return cur
}

// WorldTransform composes the local transforms from the root to p.
func (s *Stage) WorldTransform(p *Prim) (Affine, error) {
	var chain []*Prim
	for q := p; q != nil; q = q.Parent() {
		chain = append(chain, q)
	}
	world := Identity()
	for i := len(chain) - 1; i >= 0; i-- {
		local, reset, err := LocalTransform(chain[i])
		if err != nil {
			return Identity(), err
		}
		if reset {
			world = local
		} else {
			world = local.Then(world)
		}
	}
	return world, nil
}

// RootNames lists the names of the root prims.
func (s *Stage) RootNames() []string {
	out := make([]string, len(s.Layer.Prims))
	for i, p := range s.Layer.Prims {
		out[i] = p.Name
	}
	return out
}
