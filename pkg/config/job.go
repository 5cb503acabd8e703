// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"slices"
	"time"

	"github.com/telekom/hoptrace/internal/traceroute"
)

// minJobInterval is the lower bound of the pause between two runs of a job.
const minJobInterval = time.Second

// Job is a traceroute job: the destinations to trace together
// and the options of every run.
type Job struct {
	// Destinations are the hostnames or IPv4 addresses to trace
	Destinations []string `json:"destinations" yaml:"destinations" mapstructure:"destinations"`
	// Interval is the pause between two runs. Zero runs the job once.
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	// Options are the options of every run
	traceroute.Options `yaml:",inline" mapstructure:",squash"`
}

// NewJob returns an empty job with the default traceroute options.
// Decoding into it keeps the defaults of fields absent in the source.
func NewJob() Job {
	return Job{Options: traceroute.DefaultOptions()}
}

// Validate checks the job and its traceroute options
func (j *Job) Validate() error {
	var errs []error
	if len(j.Destinations) == 0 {
		errs = append(errs, ErrInvalidConfig{Field: "destinations", Reason: "at least one destination is required"})
	}
	for _, d := range j.Destinations {
		if d == "" {
			errs = append(errs, ErrInvalidConfig{Field: "destinations", Reason: "destination must not be empty"})
			break
		}
	}
	if j.Interval != 0 && j.Interval < minJobInterval {
		errs = append(errs, ErrInvalidConfig{Field: "interval", Reason: "must be 0 or at least " + minJobInterval.String()})
	}
	if vErr := j.Options.Validate(); vErr != nil {
		errs = append(errs, ErrInvalidConfig{Field: "options", Reason: vErr.Error()})
	}
	return errors.Join(errs...)
}

// Equal reports whether two jobs trace the same destinations the same way.
func (j Job) Equal(o Job) bool {
	return j.Interval == o.Interval && j.Options == o.Options && slices.Equal(j.Destinations, o.Destinations)
}
