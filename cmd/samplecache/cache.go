package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/samplecache/store"
)

func newCacheCmd(configPath *string) *cobra.Command {
	var inner bool

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the sample store",
	}

	open := func(cmd *cobra.Command) (*app, store.Store, error) {
		a, err := load(*configPath, cmd.ErrOrStderr())
		if err != nil {
			return nil, nil, err
		}
		sc := a.cfg.Cache.Store
		if inner {
			if a.cfg.Cache.Inner == nil {
				return nil, nil, errors.New("no inner store configured")
			}
			sc = *a.cfg.Cache.Inner
		}
		st, err := a.openStore(cmd.Context(), sc, false)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() error { return st.Close(cmd.Context()) })
		return a, st, nil
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show sequences and their lengths",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, st, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			lister, ok := st.(store.Lister)
			if !ok {
				return fmt.Errorf("store cannot list keys: %w", store.ErrUnsupported)
			}
			ctx := cmd.Context()
			keys, err := lister.Keys(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FINGERPRINT\tSAMPLES")
			total := 0
			for _, k := range keys {
				n, err := st.Len(ctx, k)
				if err != nil {
					fmt.Fprintf(w, "%s\t%v\n", k, err)
					continue
				}
				total += n
				fmt.Fprintf(w, "%s\t%d\n", k, n)
			}
			fmt.Fprintf(w, "TOTAL %d\t%d\n", len(keys), total)
			return w.Flush()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show FINGERPRINT",
		Short: "Print every sample stored under a fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, st, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			vals, err := store.Load(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			for i, v := range vals {
				fmt.Fprintf(cmd.OutOrStdout(), "--- %d ---\n%s\n", i, v)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&inner, "inner", false, "inspect the inner store of a nested cache")
	cmd.AddCommand(statsCmd, showCmd)
	return cmd
}
