package main

import (
	"fmt"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/bsundman/nodle/pkg/lib/render"
)

func newBatchCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <manifest.yaml>",
		Short: "Render every scene listed in a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := homedir.Expand(args[0])
			if err != nil {
				return err
			}
			manifest, err := render.LoadManifest(path)
			if err != nil {
				return err
			}
			reqs, err := manifest.Requests()
			if err != nil {
				return err
			}
			orch, err := newOrchestrator(cmd, flags)
			if err != nil {
				return err
			}

			outcomes := orch.RenderAll(cmd.Context(), reqs)
			printSummary(cmd.OutOrStdout(), reqs, outcomes)

			failed := 0
			for _, o := range outcomes {
				if !o.Success {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d renders failed", failed, len(outcomes))
			}
			return nil
		},
	}
	return cmd
}
