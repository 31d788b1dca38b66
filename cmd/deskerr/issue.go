package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strongdm/deskerr/pkg/deskerr"
	"github.com/strongdm/deskerr/pkg/deskerr/store/sqlite"
)

func newIssueURLCmd(flags *globalFlags) *cobra.Command {
	var (
		last  bool
		route string
	)

	cmd := &cobra.Command{
		Use:   "issue-url [entry-id]",
		Short: "Print a pre-filled issue URL",
		Long: `Compose the issue URL for an entry from the local error store, or a
blank report when no entry is named. --last uses the most recent entry.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var entry *deskerr.Entry
			if last || len(args) == 1 {
				id := ""
				if len(args) == 1 {
					id = args[0]
				}
				entry, err = findEntry(cmd.Context(), cfg.Store.Path, id)
				if err != nil {
					return err
				}
			}

			h := deskerr.NewHandler(
				deskerr.WithLog(deskerr.NewLog(1)),
				deskerr.WithHandlerEnvironment(deskerr.StaticEnvironment(cfg.Environment())),
				deskerr.WithIssueConfig(cfg.IssueTracker()),
				deskerr.WithRoutes(deskerr.RouteFunc(func() string { return route })),
				deskerr.WithLogger(logger),
			)
			fmt.Fprintln(cmd.OutOrStdout(), h.IssueURL(cmd.Context(), entry))
			return nil
		},
	}

	cmd.Flags().BoolVar(&last, "last", false, "use the most recent stored entry")
	cmd.Flags().StringVar(&route, "route", "", "route to report as the current path")

	return cmd
}

// findEntry looks an entry up in the local store; an empty id selects the
// newest entry.
func findEntry(ctx context.Context, path, id string) (*deskerr.Entry, error) {
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if id != "" {
		return store.Get(ctx, id)
	}
	entries, err := store.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no stored entries in %s", path)
	}
	return entries[0], nil
}
