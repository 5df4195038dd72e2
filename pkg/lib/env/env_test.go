package env

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
)

func TestString(t *testing.T) {
	t.Setenv("NODLE_ENV_STRING", "value")
	if got := String("NODLE_ENV_STRING", "def"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
	if got := String("NODLE_ENV_STRING_MISSING", "def"); got != "def" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("NODLE_ENV_DURATION", "90s")
	d, err := Duration("NODLE_ENV_DURATION", 0)
	if err != nil || d != 90*time.Second {
		t.Fatalf("expected 90s, got %v (%v)", d, err)
	}

	t.Setenv("NODLE_ENV_DURATION", "soon")
	if _, err := Duration("NODLE_ENV_DURATION", 0); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestIntsAndBool(t *testing.T) {
	t.Setenv("NODLE_ENV_INT", "42")
	t.Setenv("NODLE_ENV_INT64", "536870912")
	t.Setenv("NODLE_ENV_BOOL", "true")

	if i, err := Int("NODLE_ENV_INT", 0); err != nil || i != 42 {
		t.Fatalf("Int: %d %v", i, err)
	}
	if i, err := Int64("NODLE_ENV_INT64", 0); err != nil || i != 536870912 {
		t.Fatalf("Int64: %d %v", i, err)
	}
	if b, err := Bool("NODLE_ENV_BOOL", false); err != nil || !b {
		t.Fatalf("Bool: %v %v", b, err)
	}

	t.Setenv("NODLE_ENV_INT", "many")
	if _, err := Int("NODLE_ENV_INT", 0); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestPathExpandsHome(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	t.Setenv("NODLE_ENV_PATH", "~/vendor/usd")
	got, err := Path("NODLE_ENV_PATH", "/fallback")
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if want := filepath.Join(home, "vendor", "usd"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	t.Setenv("NODLE_ENV_PATH", "")
	if got, _ := Path("NODLE_ENV_PATH", "/fallback"); got != "/fallback" {
		t.Fatalf("expected fallback for empty value, got %s", got)
	}
}
