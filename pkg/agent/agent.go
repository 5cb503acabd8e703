// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/telekom/hoptrace/internal/logger"
	"github.com/telekom/hoptrace/internal/traceroute"
	"github.com/telekom/hoptrace/pkg/api"
	"github.com/telekom/hoptrace/pkg/config"
	"github.com/telekom/hoptrace/pkg/metrics"
)

const shutdownTimeout = time.Second * 90

// Agent traces the destinations of the loaded job periodically and
// serves the results
type Agent struct {
	// config is the startup configuration of the agent
	config *config.Config
	// api serves the results and metrics
	api api.API
	// store holds the results served by the api
	store *api.Store
	// loader is used to load the trace job
	loader config.Loader
	// metrics is used to collect metrics
	metrics metrics.Provider
	// runner runs the trace job
	runner *runner
	// cJob is used to signal that the trace job has changed
	cJob chan config.Job
	// cErr is used to handle non-recoverable errors of the agent components
	cErr chan error
	// cDone is used to signal that the agent was shut down
	cDone chan struct{}
	// shutOnce is used to ensure that the shutdown function is only called once
	shutOnce sync.Once
}

// New creates a new agent from the startup configuration
func New(cfg *config.Config, version string) *Agent {
	m := metrics.New(cfg.Telemetry, version)
	store := api.NewStore()
	client := traceroute.NewClient(
		traceroute.WithObserver(store),
		traceroute.WithMetrics(m.GetRegistry()),
	)

	a := &Agent{
		config:  cfg,
		api:     api.New(cfg.Api, store, m.GetRegistry(), version),
		store:   store,
		metrics: m,
		runner:  newRunner(client, net.DefaultResolver, store),
		cJob:    make(chan config.Job, 1),
		// one slot per component so none blocks after shutdown
		cErr:  make(chan error, 3),
		cDone: make(chan struct{}, 1),
	}
	a.loader = config.NewLoader(cfg, a.cJob)
	return a
}

// Run starts the agent. It blocks until the agent is shut down, either
// because ctx is done or a component failed, and then returns [ErrFinalShutdown].
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	log := logger.FromContext(ctx)
	defer cancel()

	if err := a.metrics.InitTracing(ctx); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := metrics.RegisterInstanceInfo(a.metrics.GetRegistry(), a.config.Name, a.config.Metadata.Labels()); err != nil {
		return fmt.Errorf("failed to register instance info: %w", err)
	}

	go func() {
		a.cErr <- a.loader.Run(ctx)
	}()
	go func() {
		a.cErr <- a.api.Run(ctx)
	}()
	go func() {
		a.cErr <- a.runner.Run(ctx)
	}()

	for {
		select {
		case job := <-a.cJob:
			a.runner.Reconcile(job)
		case <-ctx.Done():
			a.shutdown(ctx)
		case err := <-a.cErr:
			if err != nil {
				log.ErrorContext(ctx, "Non-recoverable error in agent component", "error", err)
				a.shutdown(ctx)
			}
		case <-a.cDone:
			log.InfoContext(ctx, "Agent was shut down")
			return ErrFinalShutdown
		}
	}
}

// shutdown shuts down the agent and all managed components gracefully.
// Errors of the components are logged.
func (a *Agent) shutdown(ctx context.Context) {
	errC := ctx.Err()
	log := logger.FromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	a.shutOnce.Do(func() {
		log.InfoContext(ctx, "Shutting down agent")
		var sErrs ErrShutdown
		sErrs.errAPI = a.api.Shutdown(ctx)
		sErrs.errMetrics = a.metrics.Shutdown(ctx)
		a.loader.Shutdown(ctx)
		a.runner.Shutdown(ctx)

		if sErrs.HasError() {
			log.ErrorContext(ctx, "Failed to shutdown gracefully", "contextError", errC, "error", sErrs)
		}

		// Signal that shutdown is complete
		a.cDone <- struct{}{}
	})
}
