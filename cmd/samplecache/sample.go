package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/samplecache"
)

func newSampleCmd(configPath *string) *cobra.Command {
	var (
		n           int
		batch       int
		independent bool
	)

	cmd := &cobra.Command{
		Use:   "sample PROMPT",
		Short: "Print samples for a prompt, served from the cache when possible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			m, err := a.model(ctx, independent)
			if err != nil {
				return err
			}

			vals, err := samplecache.Take(ctx, m.Sample(args[0], batch), n)
			for i, v := range vals {
				fmt.Fprintf(cmd.OutOrStdout(), "--- %d ---\n%s\n", i, v)
			}
			if errors.Is(err, samplecache.ErrReplicationMiss) {
				return fmt.Errorf("%w (got %d of %d)", err, len(vals), n)
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 1, "number of samples")
	cmd.Flags().IntVarP(&batch, "batch", "b", 1, "read-ahead when the cache runs dry")
	cmd.Flags().BoolVar(&independent, "independent", false, "continue past samples already printed by this process")
	return cmd
}
