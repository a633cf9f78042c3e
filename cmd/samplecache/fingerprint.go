package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/samplecache"
)

func newFingerprintCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint PROMPT",
		Short: "Print the cache key of a prompt under the configured identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", samplecache.Fingerprint(a.identity, args[0]), a.identity)
			return nil
		},
	}
}
