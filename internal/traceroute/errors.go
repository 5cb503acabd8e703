// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ErrICMPNotAvailable is returned when ICMP is not available due to lack of NET_RAW capabilities.
// This typically occurs when the process does not have the necessary permissions to create a raw socket
// or when running in an environment where ICMP is restricted (e.g., some containerized environments).
var ErrICMPNotAvailable = errors.New("no NET_RAW capabilities, ICMP not available")

// errEchoIDsExhausted is returned when no unused echo id could be found for a probe.
var errEchoIDsExhausted = errors.New("no unused echo id available")

// isPermissionError checks if the error is caused by missing privileges for raw sockets.
func isPermissionError(err error) bool {
	return errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES)
}
