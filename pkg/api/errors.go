// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
)

var (
	// ErrApiContext is returned when the api stops because its context is done
	ErrApiContext = errors.New("api context canceled")
	// ErrInvalidAddress is returned when the listening address is invalid
	ErrInvalidAddress = errors.New("invalid listening address")
	// ErrInvalidTLSConfig is returned when tls is enabled without certificate or key
	ErrInvalidTLSConfig = errors.New("tls requires a certificate and a key")
)

type ErrCreateOpenapiSchema struct {
	name string
	err  error
}

func (e ErrCreateOpenapiSchema) Error() string {
	return fmt.Sprintf("failed to get schema for %s: %v", e.name, e.err)
}

func (e ErrCreateOpenapiSchema) Unwrap() error {
	return e.err
}
