// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/telekom/hoptrace/internal/logger"
	"github.com/telekom/hoptrace/internal/traceroute"
	"github.com/telekom/hoptrace/pkg/api"
	"github.com/telekom/hoptrace/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// runner runs the current trace job and publishes its results to the store.
type runner struct {
	client   traceroute.Client
	resolver Resolver
	store    *api.Store
	tracer   trace.Tracer
	// cJob holds the latest job not yet picked up
	cJob chan config.Job
	done chan struct{}
}

func newRunner(client traceroute.Client, resolver Resolver, store *api.Store) *runner {
	return &runner{
		client:   client,
		resolver: resolver,
		store:    store,
		tracer:   otel.Tracer("agent.runner"),
		cJob:     make(chan config.Job, 1),
		done:     make(chan struct{}, 1),
	}
}

// Run traces the current job right away and then every job interval.
// A new job replaces the current one and is traced immediately, unless it
// equals the current job. A job without interval is traced once.
// Run only fails if tracing is impossible.
func (r *runner) Run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	var (
		job     config.Job
		running bool
		next    <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			log.DebugContext(ctx, "Context canceled", "error", ctx.Err())
			return ctx.Err()
		case <-r.done:
			log.InfoContext(ctx, "Runner terminated")
			return nil
		case j := <-r.cJob:
			if running && job.Equal(j) {
				log.DebugContext(ctx, "Trace job unchanged")
				continue
			}
			log.InfoContext(ctx, "Trace job updated", "destinations", j.Destinations, "interval", j.Interval)
			job, running = j, true
		case <-next:
		}

		if err := r.trace(ctx, job); err != nil {
			return err
		}
		next = nil
		if job.Interval > 0 {
			next = time.After(job.Interval)
		}
	}
}

// Reconcile hands a new job to the runner. A job not yet picked up is replaced.
func (r *runner) Reconcile(job config.Job) {
	select {
	case <-r.cJob:
	default:
	}
	r.cJob <- job
}

// Shutdown stops the runner
func (r *runner) Shutdown(ctx context.Context) {
	select {
	case r.done <- struct{}{}:
		logger.FromContext(ctx).DebugContext(ctx, "Sending signal to shut down runner")
	default:
	}
}

// trace runs a single traceroute of job. Errors are logged and recorded,
// only missing privileges are returned.
func (r *runner) trace(ctx context.Context, job config.Job) error {
	log := logger.FromContext(ctx)
	ctx, span := r.tracer.Start(ctx, "agent.trace", trace.WithAttributes(
		attribute.StringSlice("agent.job.destinations", job.Destinations),
	))
	defer span.End()

	dsts, err := ResolveDestinations(ctx, r.resolver, job.Destinations)
	if err != nil {
		span.RecordError(err)
	}
	r.store.Forget(dsts)
	if len(dsts) == 0 {
		log.WarnContext(ctx, "No destination of the trace job could be resolved")
		span.SetStatus(codes.Error, "no destination resolved")
		return nil
	}

	start := time.Now()
	res, err := r.client.Run(ctx, dsts, &job.Options)
	if res != nil {
		r.store.Publish(res)
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to run traceroute", "error", err)
		span.SetStatus(codes.Error, "failed to run traceroute")
		span.RecordError(err)
		if errors.Is(err, traceroute.ErrICMPNotAvailable) {
			return fmt.Errorf("tracing is not possible: %w", err)
		}
		return nil
	}

	log.InfoContext(ctx, "Successfully finished traceroute", "destinations", len(dsts), "duration", time.Since(start))
	return nil
}
