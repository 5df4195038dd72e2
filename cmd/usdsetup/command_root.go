package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bsundman/nodle/pkg/lib"
	"github.com/bsundman/nodle/pkg/lib/console"
	"github.com/bsundman/nodle/pkg/lib/env"
	"github.com/bsundman/nodle/pkg/lib/platform"
	"github.com/bsundman/nodle/pkg/lib/provision"
)

func NewRootCmd() *cobra.Command {
	return newRootCmd()
}

// newRootCmd takes extra provisioner options so tests can swap the launcher.
func newRootCmd(extra ...provision.Option) *cobra.Command {
	var (
		fromSource bool
		version    string
		verbose    bool
	)
	root := &cobra.Command{
		Use:           "usdsetup",
		Short:         "Install the pinned USD release into vendor/usd",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := console.New(cmd.OutOrStdout())
			if verbose {
				lib.SetLogOutput(cmd.ErrOrStderr())
			}

			pl, err := platform.Detect()
			if err != nil {
				return err
			}
			project, err := os.Getwd()
			if err != nil {
				return err
			}
			python, err := provision.FindPython(env.String("USD_SETUP_PYTHON", ""))
			if err != nil {
				out.Failf("%v", err)
				return err
			}

			out.Printf("Setting up USD %s for nodle", version)
			out.Rule(40)
			out.Infof("Platform: %s", pl)
			out.Infof("Interpreter: %s", python)

			opts := []provision.Option{
				provision.WithPython(python),
				provision.WithConsole(out),
			}
			if verbose {
				opts = append(opts, provision.WithEcho(cmd.ErrOrStderr()))
			}
			method := provision.PackageInstall
			if fromSource {
				method = provision.BuildFromSource
			}

			p := provision.New(pl, project, append(opts, extra...)...)
			res, err := p.Provision(cmd.Context(), version, method)
			if err != nil {
				var pre *provision.PrerequisiteError
				if errors.As(err, &pre) && pre.Found != "" {
					out.Failf("Python %s or newer is required, found %s", pre.Minimum, pre.Found)
				} else {
					out.Failf("%v", err)
				}
				return err
			}

			out.Rule(40)
			if !res.Verified {
				out.Failf("USD installation could not be verified: %v", res.VerifyErr)
				return fmt.Errorf("verification failed: %s", res.Summary())
			}
			out.Successf("USD setup complete: %s", res.Summary())
			printActivation(out, project, res.Target)
			return nil
		},
	}

	f := root.Flags()
	f.BoolVar(&fromSource, "build-from-source", false, "build OpenUSD from source instead of installing the usd-core package")
	f.StringVar(&version, "usd-version", platform.DefaultVersion, "USD release to install")
	f.BoolVarP(&verbose, "verbose", "v", false, "log debug output and stream installer output to stderr")

	return root
}

func printActivation(out *console.Console, project string, t platform.InstallTarget) {
	rel := func(p string) string {
		if r, err := filepath.Rel(project, p); err == nil {
			return r
		}
		return p
	}
	out.Printf("")
	out.Printf("To use USD in your shell:")
	if t.Platform.OS == platform.Windows {
		out.Printf("  %s", rel(t.BatchScriptPath()))
	} else {
		out.Printf("  source %s", rel(t.ShellScriptPath()))
	}
	out.Printf("Build tools read %s automatically.", rel(t.BuildConfigPath()))
}
