package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tubbz-alt/ripples/internal/mapping"
)

func newValidateMappingCmd() *cobra.Command {
	var total, gpu int
	var text string

	cmd := &cobra.Command{
		Use:   "validate-mapping",
		Short: "Check a worker topology and GPU rank mapping",
		Long: `Check a worker topology and GPU rank mapping without building any worker.

Example: rrrgen validate-mapping --total 4 --gpu 2 --mapping 1,3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ranks, err := mapping.ParseGPUMapping(total, gpu, text)
			if err != nil {
				return err
			}
			slots, err := mapping.Plan(total-gpu, gpu, ranks)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range slots {
				kind := "CPU-worker"
				if s.GPU {
					kind = "GPU-worker"
				}
				fmt.Fprintf(out, "rank=%d -> %s #%d\n", s.Rank, kind, s.Index)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&total, "total", 1, "Total number of workers")
	cmd.Flags().IntVar(&gpu, "gpu", 0, "Number of GPU workers")
	cmd.Flags().StringVar(&text, "mapping", "", "Comma-separated GPU ranks (empty for the default mapping)")

	return cmd
}
