// Package buildconfig reads and writes the build-tool configuration file that
// points the native build at the installed USD library.
package buildconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const header = "# Generated by usdsetup. Re-run it to refresh these paths.\n\n"

// Env is the [env] table.
type Env struct {
	NodleUSDRoot  string `toml:"NODLE_USD_ROOT"`
	USDPythonPath string `toml:"USD_PYTHON_PATH"`
}

// Config is the subset of the build-tool configuration owned by usdsetup.
type Config struct {
	Env Env `toml:"env"`
}

// Marshal encodes c with the generated-file header.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode build config: %w", err)
	}
	return buf.Bytes(), nil
}

// Write replaces the file at path, creating its directory.
func Write(path string, c Config) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads the file at path.
func Load(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}
