// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import "net/netip"

var _ Observer = NoopObserver{}

// Observer is notified about the progress of a run.
//
// Both methods are called synchronously on the goroutine driving the run.
// Implementations must return quickly, otherwise they stall the probing cadence.
//
//go:generate go tool moq -out observer_moq.go . Observer
type Observer interface {
	// OnTick is called after every scheduling tick.
	OnTick()
	// OnReply is called after the reply of responder to the probe sent to
	// dst with the given TTL has been recorded.
	OnReply(dst, responder netip.Addr, ttl int)
}

// NoopObserver is an [Observer] that ignores all notifications.
type NoopObserver struct{}

func (NoopObserver) OnTick()                        {}
func (NoopObserver) OnReply(_, _ netip.Addr, _ int) {}
