package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fmsync/internal/fmclient"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify connectivity and credentials against the FileMaker server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			client := newClient(logger)
			err := client.Authenticate(ctx)

			var connErr *fmclient.ConnectivityError
			var authErr *fmclient.AuthError
			switch {
			case errors.As(err, &connErr) && connErr.NoNetwork:
				return fmt.Errorf("no network path: is this machine online? (%w)", err)
			case errors.As(err, &connErr):
				return fmt.Errorf("filemaker server not reachable at %s (%w)", cfg.FileMaker.URL, err)
			case errors.As(err, &authErr):
				return fmt.Errorf("credentials rejected by %s (%w)", cfg.FileMaker.URL, err)
			case err != nil:
				return err
			}

			defer func() { _ = client.Close(context.Background()) }()
			fmt.Printf("OK: authenticated against %s (database %s)\n", cfg.FileMaker.URL, cfg.FileMaker.Database)
			return nil
		},
	}
}
