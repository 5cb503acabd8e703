// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

// Package report renders traceroute results for humans and machines.
//
// The table format prints one block per destination, headed by a
// "DEST:" line and followed by one row per hop in ascending TTL order.
// Hop addresses can be annotated with their reverse DNS names using a
// [Resolver].
package report
