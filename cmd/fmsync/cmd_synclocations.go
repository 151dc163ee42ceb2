package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fmsync/internal/archive"
	"fmsync/internal/reconcile"
)

func syncLocationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-locations",
		Short: "Sync project file locations from the archive database into FileMaker",
		Long: "Reads every archived project carrying a file server location, matches each " +
			"against FileMaker by project number, and overwrites the remote location field " +
			"with the path re-rooted under the local mount prefix.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if cfg.Archive.DSN == "" {
				return fmt.Errorf("sync-locations: archive.dsn is not configured")
			}

			src, err := archive.Open(ctx, cfg.Archive.DSN, logger)
			if err != nil {
				return fmt.Errorf("sync-locations: %w", err)
			}
			defer func() { _ = src.Close() }()

			rows, err := src.ProjectLocations(ctx)
			if err != nil {
				return fmt.Errorf("sync-locations: %w", err)
			}

			client := newClient(logger)
			if err := client.Authenticate(ctx); err != nil {
				return fmt.Errorf("sync-locations: %w", err)
			}
			defer func() { _ = client.Close(context.Background()) }()

			engine := reconcile.NewEngine(newDirectory(client, logger), cfg.Sync.MountPrefix, logger)
			tally, runErr := engine.Run(ctx, rows)

			// The summary is printed even on operator abort; edits already
			// applied are permanent.
			fmt.Println(tally.String())
			fmt.Printf("Modified projects: %s\n", strings.Join(tally.ModifiedKeys, ", "))
			return runErr
		},
	}
}
