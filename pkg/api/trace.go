// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/netip"
	"time"

	"github.com/telekom/hoptrace/internal/traceroute"
)

// Trace is the payload describing the path to a single destination.
type Trace struct {
	// Destination is the traced IPv4 address
	Destination string `json:"destination" yaml:"destination"`
	// Reached is true if the destination answered
	Reached bool `json:"reached" yaml:"reached"`
	// Hops are ordered from the highest TTL down to 1
	Hops []Hop `json:"hops" yaml:"hops"`
	// UpdatedAt is the time of the last change
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Hop is the payload of a single hop.
type Hop struct {
	TTL int `json:"ttl" yaml:"ttl"`
	// Addr is the responding address or "?" if the hop is unresolved
	Addr string `json:"addr" yaml:"addr"`
	// Latency is the round trip time in milliseconds, 0 if unknown
	Latency float64 `json:"latency" yaml:"latency"`
	Reached bool    `json:"reached" yaml:"reached"`
}

func newTrace(dst netip.Addr, res traceroute.Result, updated time.Time) Trace {
	hops := res.Hops(dst)
	t := Trace{
		Destination: dst.String(),
		Hops:        make([]Hop, 0, len(hops)),
		UpdatedAt:   updated,
	}
	for _, h := range hops {
		t.Reached = t.Reached || h.Reached
		t.Hops = append(t.Hops, Hop{
			TTL:     h.TTL,
			Addr:    h.AddrString(),
			Latency: float64(h.Latency) / float64(time.Millisecond),
			Reached: h.Reached,
		})
	}
	return t
}
