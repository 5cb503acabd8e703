// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

// Package traceroute discovers the network paths to many destinations at
// once with ICMP echo requests of increasing TTL.
//
// A single goroutine drives each run. Every tick it resends the probes in
// flight that still have retries left, gives up on those that have none and
// tops the window of in-flight probes up with new ones, at most
// [Options.BatchSize] sends per tick. In between ticks it reads replies from
// one raw ICMP socket and matches them back to their probe:
//
//   - echo replies come from the destination itself and shrink its TTL
//     ceiling, making every probe above it moot
//   - time exceeded and destination unreachable messages come from routers
//     and quote the original probe, whose echo id identifies it
//
// The echo id travels twice, in the ICMP header and as six ASCII digits in
// the payload, since some routers rewrite the quoted header. The payload
// digits take precedence.
//
// Typical usage:
//
//	client := traceroute.NewClient(traceroute.WithMetrics(registry))
//	opts := traceroute.DefaultOptions()
//	res, err := client.Run(ctx, []netip.Addr{netip.MustParseAddr("8.8.8.8")}, &opts)
//	// res.Hops(dst) lists the hops from the destination down to TTL 1
//
// Opening raw sockets requires NET_RAW capabilities, without them
// [Client.Run] fails with [ErrICMPNotAvailable].
package traceroute
