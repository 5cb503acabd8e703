// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"errors"
	"fmt"
)

// ErrFinalShutdown is returned by [Agent.Run] once the agent is shut down
var ErrFinalShutdown = errors.New("agent was shut down")

// ErrShutdown holds any errors that may
// have occurred during shutdown of the agent
type ErrShutdown struct {
	errAPI     error
	errMetrics error
}

// HasError returns true if any of the errors are set
func (e ErrShutdown) HasError() bool {
	return e.errAPI != nil || e.errMetrics != nil
}

func (e ErrShutdown) Error() string {
	return fmt.Sprintf("shutdown failed: api: %v, metrics: %v", e.errAPI, e.errMetrics)
}

// ErrResolve is returned when a destination cannot be resolved to an IPv4 address
type ErrResolve struct {
	Host string
	Err  error
}

func (e *ErrResolve) Error() string {
	return fmt.Sprintf("failed to resolve destination %q: %v", e.Host, e.Err)
}

func (e *ErrResolve) Unwrap() error {
	return e.Err
}
