package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/bsundman/nodle/pkg/lib"
	"github.com/bsundman/nodle/pkg/lib/console"
	"github.com/bsundman/nodle/pkg/lib/env"
	"github.com/bsundman/nodle/pkg/lib/render"
	"github.com/bsundman/nodle/pkg/lib/runner"
)

type rootFlags struct {
	width         int
	height        int
	renderer      string
	camera        string
	complexity    string
	visible       bool
	listRenderers bool
	timeout       time.Duration
	verbose       bool
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "usdrender <scene-file> <output-file>",
		Short:         "Render a USD scene to an image with Hydra",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if flags.listRenderers {
				return nil
			}
			if len(args) != 2 {
				return errors.New("scene file and output file are required")
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.verbose {
				lib.SetLogOutput(cmd.ErrOrStderr())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := newOrchestrator(cmd, flags)
			if err != nil {
				return err
			}
			if flags.listRenderers {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Available Hydra renderers:")
				for _, name := range orch.ListRenderers() {
					fmt.Fprintf(out, "  - %s\n", name)
				}
				return nil
			}

			scenePath, err := homedir.Expand(args[0])
			if err != nil {
				return err
			}
			outputPath, err := homedir.Expand(args[1])
			if err != nil {
				return err
			}
			outcome := orch.Render(cmd.Context(), render.Request{
				ScenePath:  scenePath,
				OutputPath: outputPath,
				Width:      flags.width,
				Height:     flags.height,
				Renderer:   flags.renderer,
				CameraPath: flags.camera,
				Complexity: flags.complexity,
				Visible:    flags.visible,
			})
			if !outcome.Success {
				return fmt.Errorf("render failed at %s: %w", outcome.Stage, outcome.Err)
			}
			console.New(cmd.OutOrStdout()).Successf("Hydra render completed: %s", outputPath)
			return nil
		},
	}

	defaultTimeout, err := env.Duration("NODLE_RENDER_TIMEOUT", 0)
	if err != nil {
		defaultTimeout = 0
	}

	f := root.Flags()
	f.IntVar(&flags.width, "width", render.DefaultWidth, "image width in pixels")
	f.IntVar(&flags.height, "height", render.DefaultHeight, "image height in pixels, used to shape a generated camera")
	f.StringVar(&flags.renderer, "renderer", render.DefaultRenderer, "Hydra render delegate")
	f.StringVar(&flags.camera, "camera", "", "camera prim path (default: first camera in the scene)")
	f.StringVar(&flags.complexity, "complexity", render.DefaultComplexity, "refinement level: low, medium, high or veryhigh")
	f.BoolVar(&flags.visible, "visible", false, "accepted for compatibility; rendering is always offscreen")
	f.BoolVar(&flags.listRenderers, "list-renderers", false, "list available renderers and exit")
	pf := root.PersistentFlags()
	pf.DurationVar(&flags.timeout, "timeout", defaultTimeout, "kill the renderer after this long (0 waits indefinitely)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output and stream renderer output to stderr")

	root.AddCommand(newBatchCmd(flags))

	return root
}

func newOrchestrator(cmd *cobra.Command, flags *rootFlags) (*render.Orchestrator, error) {
	memoryHigh, err := env.Int64("NODLE_RENDER_MEMORY_HIGH", 0)
	if err != nil {
		return nil, err
	}
	opts := []render.Option{
		render.WithLauncher(runner.NewRunner(runner.WithLimits(runner.Limits{MemoryHigh: memoryHigh}))),
		render.WithConsole(console.New(cmd.OutOrStdout())),
		render.WithTimeout(flags.timeout),
	}
	if flags.verbose {
		opts = append(opts, render.WithEcho(cmd.ErrOrStderr()))
	}
	return render.New(opts...), nil
}
