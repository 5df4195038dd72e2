package render

import (
	"fmt"
	"strings"
)

// RequestError rejects a request before any stage runs.
type RequestError struct {
	Field string
	Msg   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// SceneOpenError means the scene is missing or could not be parsed.
type SceneOpenError struct {
	Path string
	Err  error
}

func (e *SceneOpenError) Error() string {
	return fmt.Sprintf("failed to open scene %s: %v", e.Path, e.Err)
}

func (e *SceneOpenError) Unwrap() error { return e.Err }

// ExportError means the temporary layer could not be written.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("failed to export scene to %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// RendererNotFoundError means the render executable is not installed.
type RendererNotFoundError struct {
	Path string
}

func (e *RendererNotFoundError) Error() string {
	return fmt.Sprintf("usdrecord not found at %s", e.Path)
}

// RenderProcessFailure covers launch failures, non-zero exits, cancellation
// and missing output. Output is the renderer's combined output verbatim.
type RenderProcessFailure struct {
	ExitCode int
	Output   string
	Reason   string
	Err      error
}

func (e *RenderProcessFailure) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *RenderProcessFailure) Unwrap() error { return e.Err }
