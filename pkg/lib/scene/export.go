package scene

import (
	"bufio"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ExportOptions adjust an exported layer.
type ExportOptions struct {
	// Camera, when set, is appended as a root prim.
	Camera *CameraSpec
}

// Export writes the layer text with relative asset paths made absolute
// against AnchorDir, so the copy resolves the same files from any
// directory.
func (s *Stage) Export(w io.Writer, opts ExportOptions) error {
	bw := bufio.NewWriter(w)
	src := s.Layer.src
	last := 0
	for _, t := range s.Layer.assets {
		abs, ok := s.absoluteAsset(t.text)
		if !ok {
			continue
		}
		bw.WriteString(src[last:t.pos])
		bw.WriteString(quoteAsset(abs))
		last = t.end
	}
	bw.WriteString(src[last:])

	if opts.Camera != nil {
		if !strings.HasSuffix(src, "\n") {
			bw.WriteString("\n")
		}
		bw.WriteString("\n")
		bw.WriteString(opts.Camera.Prim())
	}
	return bw.Flush()
}

// ExportFile writes the export to path.
func (s *Stage) ExportFile(path string, opts ExportOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Export(f, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Stage) absoluteAsset(asset string) (string, bool) {
	if asset == "" || s.AnchorDir == "" {
		return "", false
	}
	if filepath.IsAbs(asset) || strings.HasPrefix(asset, "/") || strings.HasPrefix(asset, `\`) {
		return "", false
	}
	if u, err := url.Parse(asset); err == nil && len(u.Scheme) > 1 {
		return "", false
	}
	// Expression and package-relative paths are resolved by the library.
	if strings.HasPrefix(asset, "`") || strings.ContainsAny(asset, "[]") {
		return "", false
	}
	return filepath.ToSlash(filepath.Join(s.AnchorDir, filepath.FromSlash(asset))), true
}

func quoteAsset(path string) string {
	if strings.Contains(path, "@") {
		return "@@@" + strings.ReplaceAll(path, "@@@", `\@@@`) + "@@@"
	}
	return "@" + path + "@"
}
