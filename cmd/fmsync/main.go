package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"fmsync/internal/config"
	"fmsync/internal/fmclient"
	"fmsync/internal/projects"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "fmsync",
		Short: "fmsync — synchronize and edit FileMaker project records",
		Long: "fmsync reconciles project records on a FileMaker server against the archive " +
			"database and supports interactive project-manager reassignment.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		reassignCmd(),
		syncLocationsCmd(),
		checkCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var w io.Writer = os.Stderr
	if cfg != nil && cfg.Logging.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
		})
	}

	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newClient(logger *slog.Logger) *fmclient.Client {
	api := fmclient.NewDataAPI(
		cfg.FileMaker.URL,
		cfg.FileMaker.Database,
		cfg.FileMaker.Username,
		cfg.FileMaker.Password,
		cfg.FileMaker.SkipTLSVerify,
		logger,
	)
	return fmclient.NewClient(api, fmclient.Options{
		MaxAttempts: cfg.FileMaker.MaxAttempts,
		ProbeURL:    cfg.FileMaker.ProbeURL,
	}, logger)
}

func newDirectory(client *fmclient.Client, logger *slog.Logger) *projects.Service {
	return projects.NewService(client, cfg.FileMaker.ProjectsLayout, cfg.FileMaker.PeopleLayout, logger)
}
