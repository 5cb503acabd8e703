// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/telekom/hoptrace/internal/logger"
	"github.com/telekom/hoptrace/pkg/agent"
	"github.com/telekom/hoptrace/pkg/config"
)

// NewCmdRun creates a new run command
func NewCmdRun(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the hoptrace agent",
		Long: "Run the hoptrace agent. It loads the trace job, traces its destinations\n" +
			"periodically and serves the hop tables via the API.",
		RunE: run(version),
	}

	flags := cmd.Flags()
	flags.String("name", "", "DNS name of the hoptrace instance")
	flags.String("api-address", ":8080", "api: the address the server listens on")
	flags.String("loader-type", "file", "loader: the type of the job loader, file or http")
	flags.Duration("loader-interval", 0, "loader: the interval to reload the job, 0 loads it once")
	flags.String("loader-file-path", "job.yaml", "loader: the path of the job file")
	flags.String("loader-http-url", "", "loader: the url to fetch the job from")
	flags.String("loader-http-token", "", "loader: the bearer token to fetch the job with")
	flags.Duration("loader-http-timeout", 0, "loader: the timeout of a single fetch")
	flags.Int("loader-http-retry-count", 3, "loader: the number of retries of a failed fetch")
	flags.Duration("loader-http-retry-delay", time.Second, "loader: the initial delay between retries")

	bindFlags(cmd, map[string]string{
		"name":                    "name",
		"api-address":             "api.address",
		"loader-type":             "loader.type",
		"loader-interval":         "loader.interval",
		"loader-file-path":        "loader.file.path",
		"loader-http-url":         "loader.http.url",
		"loader-http-token":       "loader.http.token",
		"loader-http-timeout":     "loader.http.timeout",
		"loader-http-retry-count": "loader.http.retry.count",
		"loader-http-retry-delay": "loader.http.retry.delay",
	})

	return cmd
}

// run is the entry point to start the agent
func run(version string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg := &config.Config{}
		if err := viper.Unmarshal(cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}

		ctx, cancel := logger.NewContextWithLogger(logger.IntoContext(cmd.Context(), logger.NewLogger()))
		defer cancel()
		log := logger.FromContext(ctx)

		if err := cfg.Validate(ctx); err != nil {
			return fmt.Errorf("error while validating the config: %w", err)
		}

		a := agent.New(cfg, version)
		cErr := make(chan error, 1)
		log.InfoContext(ctx, "Running hoptrace", "version", version)
		go func() {
			cErr <- a.Run(ctx)
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case <-sigChan:
			log.InfoContext(ctx, "Signal received, shutting down")
			cancel()
			<-cErr
			return nil
		case err := <-cErr:
			if errors.Is(err, agent.ErrFinalShutdown) {
				return fmt.Errorf("agent stopped after a non-recoverable error: %w", err)
			}
			return err
		}
	}
}

// bindFlags binds the flags of cmd to the viper keys they configure
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			cobra.CheckErr(fmt.Errorf("failed to bind flag %q: %w", flag, err))
		}
	}
}
