// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/telekom/hoptrace/internal/logger"
	"gopkg.in/yaml.v3"
)

var _ Loader = (*FileLoader)(nil)

// FileLoader reads the trace job from a local yaml file
type FileLoader struct {
	config LoaderConfig
	cJob   chan<- Job
	done   chan struct{}
	fsys   fs.FS
}

func NewFileLoader(cfg *Config, cJob chan<- Job) *FileLoader {
	return &FileLoader{
		config: cfg.Loader,
		cJob:   cJob,
		done:   make(chan struct{}, 1),
		fsys:   os.DirFS(filepath.Dir(cfg.Loader.File.Path)),
	}
}

// Run gets the trace job from the local file.
// The job will be loaded periodically defined by the loader interval configuration.
// If the interval is 0, the job is only read once and the loader is disabled.
// A job that cannot be read or is invalid is never handed out.
func (f *FileLoader) Run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	// Get the job once on startup
	job, err := f.getJob(ctx)
	if err != nil {
		log.WarnContext(ctx, "Could not get local trace job", "error", err)
		err = fmt.Errorf("could not get local trace job: %w", err)
	} else if !f.send(ctx, job) {
		return ctx.Err()
	}

	if f.config.Interval == 0 {
		log.InfoContext(ctx, "File Loader disabled")
		return err
	}

	tick := time.NewTicker(f.config.Interval)
	defer tick.Stop()

	for {
		select {
		case <-f.done:
			log.InfoContext(ctx, "File Loader terminated")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			job, err := f.getJob(ctx)
			if err != nil {
				log.WarnContext(ctx, "Could not get local trace job", "error", err)
				tick.Reset(f.config.Interval)
				continue
			}

			log.InfoContext(ctx, "Successfully got local trace job")
			if !f.send(ctx, job) {
				return ctx.Err()
			}
			tick.Reset(f.config.Interval)
		}
	}
}

// send hands the job to the agent. It returns false if ctx is done first.
func (f *FileLoader) send(ctx context.Context, job Job) bool {
	select {
	case f.cJob <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// getJob reads and validates the trace job from the specified file.
func (f *FileLoader) getJob(ctx context.Context) (job Job, err error) {
	log := logger.FromContext(ctx).With("path", f.config.File.Path)

	file, err := f.fsys.Open(filepath.Base(f.config.File.Path))
	if err != nil {
		log.ErrorContext(ctx, "Failed to open job file", "error", err)
		return job, fmt.Errorf("failed to open job file: %w", err)
	}
	defer func() {
		cerr := file.Close()
		if cerr != nil {
			log.ErrorContext(ctx, "Failed to close job file", "error", cerr)
		}
		err = errors.Join(cerr, err)
	}()

	b, err := io.ReadAll(file)
	if err != nil {
		log.ErrorContext(ctx, "Failed to read job file", "error", err)
		return job, fmt.Errorf("failed to read job file: %w", err)
	}

	return decodeJob(ctx, b)
}

func (f *FileLoader) Shutdown(ctx context.Context) {
	log := logger.FromContext(ctx)
	select {
	case f.done <- struct{}{}:
		log.DebugContext(ctx, "Sending signal to shut down file loader")
	default:
	}
}

// decodeJob parses a yaml trace job on top of the default options and validates it.
func decodeJob(ctx context.Context, b []byte) (Job, error) {
	log := logger.FromContext(ctx)

	job := NewJob()
	if err := yaml.Unmarshal(b, &job); err != nil {
		log.ErrorContext(ctx, "Failed to parse trace job", "error", err)
		return Job{}, fmt.Errorf("failed to parse trace job: %w", err)
	}
	if err := job.Validate(); err != nil {
		log.ErrorContext(ctx, "Trace job is invalid", "error", err)
		return Job{}, fmt.Errorf("trace job is invalid: %w", err)
	}
	return job, nil
}
