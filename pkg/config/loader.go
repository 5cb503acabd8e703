// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
)

// Loader fetches the trace job and hands it to the agent.
//
//go:generate go tool moq -out loader_moq.go . Loader
type Loader interface {
	// Run starts the loader routine.
	// The loader should be able
	// to handle all errors by itself and retry if necessary.
	// If the context is canceled,
	// the Run method returns an error.
	Run(context.Context) error
	// Shutdown stops the loader routine.
	Shutdown(context.Context)
}

// NewLoader returns the job loader selected by the loader type
func NewLoader(cfg *Config, cJob chan<- Job) Loader {
	switch cfg.Loader.Type {
	case "http":
		return NewHttpLoader(cfg, cJob)
	default:
		return NewFileLoader(cfg, cJob)
	}
}
