// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/telekom/hoptrace/internal/helper"
	"github.com/telekom/hoptrace/internal/logger"
)

var _ Loader = (*HttpLoader)(nil)

// HttpLoader fetches the trace job from a remote endpoint
type HttpLoader struct {
	config LoaderConfig
	cJob   chan<- Job
	client *http.Client
	done   chan struct{}
}

func NewHttpLoader(cfg *Config, cJob chan<- Job) *HttpLoader {
	return &HttpLoader{
		config: cfg.Loader,
		cJob:   cJob,
		client: &http.Client{
			Timeout: cfg.Loader.Http.Timeout,
		},
		done: make(chan struct{}, 1),
	}
}

// Run gets the trace job from the remote endpoint.
// The job will be loaded periodically defined by the loader interval configuration.
// If the interval is 0, the job is only fetched once and the loader is disabled.
// Every fetch is retried according to the retry configuration.
func (hl *HttpLoader) Run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	var job Job
	getJobRetry := helper.Retry(func(ctx context.Context) (err error) {
		job, err = hl.getJob(ctx)
		return err
	}, hl.config.Http.RetryCfg)

	// Get the job once on startup
	err := getJobRetry(ctx)
	if err != nil {
		log.WarnContext(ctx, "Could not get remote trace job", "error", err)
		err = fmt.Errorf("could not get remote trace job: %w", err)
	} else if !hl.send(ctx, job) {
		return ctx.Err()
	}

	if hl.config.Interval == 0 {
		log.InfoContext(ctx, "HTTP Loader disabled")
		return err
	}

	tick := time.NewTicker(hl.config.Interval)
	defer tick.Stop()

	for {
		select {
		case <-hl.done:
			log.InfoContext(ctx, "HTTP Loader terminated")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if err := getJobRetry(ctx); err != nil {
				log.WarnContext(ctx, "Could not get remote trace job", "error", err)
				tick.Reset(hl.config.Interval)
				continue
			}

			log.InfoContext(ctx, "Successfully got remote trace job")
			if !hl.send(ctx, job) {
				return ctx.Err()
			}
			tick.Reset(hl.config.Interval)
		}
	}
}

// send hands the job to the agent. It returns false if ctx is done first.
func (hl *HttpLoader) send(ctx context.Context, job Job) bool {
	select {
	case hl.cJob <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// getJob gets the trace job from the remote endpoint.
// Jobs that are invalid are not retried.
func (hl *HttpLoader) getJob(ctx context.Context) (job Job, err error) {
	log := logger.FromContext(ctx).With("url", hl.config.Http.Url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hl.config.Http.Url, http.NoBody)
	if err != nil {
		log.ErrorContext(ctx, "Could not create http GET request", "error", err)
		return job, helper.Permanent(fmt.Errorf("could not create http GET request: %w", err))
	}
	if hl.config.Http.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", hl.config.Http.Token))
	}

	res, err := hl.client.Do(req) //#nosec G107 // the url is configured by the operator
	if err != nil {
		log.ErrorContext(ctx, "Http get request failed", "error", err)
		return job, fmt.Errorf("http get request failed: %w", err)
	}
	defer func() {
		cerr := res.Body.Close()
		if cerr != nil {
			log.ErrorContext(ctx, "Failed to close response body", "error", cerr)
		}
		err = errors.Join(cerr, err)
	}()

	if res.StatusCode != http.StatusOK {
		log.ErrorContext(ctx, "Http get request failed", "status", res.Status)
		return job, fmt.Errorf("request failed, status is %s", res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		log.ErrorContext(ctx, "Could not read response body", "error", err)
		return job, fmt.Errorf("could not read response body: %w", err)
	}
	log.DebugContext(ctx, "Successfully got response")

	job, err = decodeJob(ctx, body)
	if err != nil {
		return job, helper.Permanent(err)
	}
	return job, nil
}

func (hl *HttpLoader) Shutdown(ctx context.Context) {
	log := logger.FromContext(ctx)
	select {
	case hl.done <- struct{}{}:
		log.DebugContext(ctx, "Sending signal to shut down http loader")
	default:
	}
}
