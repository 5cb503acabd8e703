// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/netip"
	"slices"
	"time"
)

// Default values of [Options].
const (
	DefaultBatchSize = 100
	DefaultMaxRetry  = 10
	DefaultTimeout   = time.Second
	DefaultStartTTL  = 5
	DefaultMaxTTL    = 32
)

// unresolvedMarker is how an unresolved hop is rendered.
const unresolvedMarker = "?"

// Options contains the configuration of a traceroute run.
type Options struct {
	// BatchSize is the maximum number of probes sent per tick and the
	// ceiling on the number of probes in flight.
	BatchSize int `json:"batchSize" yaml:"batchSize" mapstructure:"batchSize"`
	// MaxRetry is the number of times an unanswered probe is resent.
	MaxRetry int `json:"maxRetry" yaml:"maxRetry" mapstructure:"maxRetry"`
	// Timeout is how long a receive blocks before the next tick.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	// StartTTL is the first TTL probed. Hops closer than this are skipped.
	StartTTL int `json:"startTTL" yaml:"startTTL" mapstructure:"startTTL"`
	// MaxTTL is the absolute TTL ceiling. Probes are sent with TTLs below it.
	MaxTTL int `json:"maxTTL" yaml:"maxTTL" mapstructure:"maxTTL"`
	// RunningBudget bounds how long the run keeps ticking once no new probes
	// are left. Zero means Timeout * MaxRetry.
	RunningBudget time.Duration `json:"runningBudget,omitempty" yaml:"runningBudget,omitempty" mapstructure:"runningBudget"`
}

// DefaultOptions returns the options used when nothing else is configured.
func DefaultOptions() Options {
	return Options{
		BatchSize: DefaultBatchSize,
		MaxRetry:  DefaultMaxRetry,
		Timeout:   DefaultTimeout,
		StartTTL:  DefaultStartTTL,
		MaxTTL:    DefaultMaxTTL,
	}
}

// budget returns the effective running budget.
func (o *Options) budget() time.Duration {
	if o.RunningBudget > 0 {
		return o.RunningBudget
	}
	return o.Timeout * time.Duration(o.MaxRetry)
}

// Validate checks that the options describe a run that can terminate and
// whose probes can be told apart.
func (o *Options) Validate() (err error) {
	if o.BatchSize <= 0 {
		err = errors.Join(err, fmt.Errorf("batch size must be greater than 0, got %d", o.BatchSize))
	}
	if o.MaxRetry < 0 {
		err = errors.Join(err, fmt.Errorf("max retry must not be negative, got %d", o.MaxRetry))
	}
	if o.Timeout <= 0 {
		err = errors.Join(err, fmt.Errorf("timeout must be greater than 0, got %v", o.Timeout))
	}
	if o.RunningBudget < 0 {
		err = errors.Join(err, fmt.Errorf("running budget must not be negative, got %v", o.RunningBudget))
	}
	if o.StartTTL < 1 || o.StartTTL >= o.MaxTTL || o.MaxTTL > maxIPTTL {
		err = errors.Join(err, fmt.Errorf("ttl range must satisfy 1 <= start (%d) < max (%d) <= %d", o.StartTTL, o.MaxTTL, maxIPTTL))
	}
	// Every send of a probe in flight holds its own echo id.
	if live := o.BatchSize * (o.MaxRetry + 1); o.BatchSize > 0 && o.MaxRetry >= 0 && live > echoIDSpace {
		err = errors.Join(err, fmt.Errorf("batch size %d with max retry %d needs %d echo ids, only %d available", o.BatchSize, o.MaxRetry, live, echoIDSpace))
	}
	return err
}

// ProbeKey identifies the probe sent to a destination with a given TTL.
type ProbeKey struct {
	Destination netip.Addr
	TTL         int
}

func (k ProbeKey) String() string {
	return fmt.Sprintf("%s/%d", k.Destination, k.TTL)
}

// Hop is the outcome of probing a destination with one TTL.
type Hop struct {
	// TTL is the TTL of the probe.
	TTL int `json:"ttl" yaml:"ttl"`
	// Addr is the address that answered. It is invalid for an unresolved hop.
	Addr netip.Addr `json:"addr" yaml:"addr"`
	// Latency is the time between sending the answered probe and its reply.
	Latency time.Duration `json:"-" yaml:"-"`
	// Reached is true if the destination itself answered.
	Reached bool `json:"reached" yaml:"reached"`
}

// Unresolved reports whether no reply was received for the hop.
func (h Hop) Unresolved() bool {
	return !h.Addr.IsValid()
}

// AddrString returns the hop address or the unresolved marker.
func (h Hop) AddrString() string {
	if h.Unresolved() {
		return unresolvedMarker
	}
	return h.Addr.String()
}

// hopView is the serialized form of a [Hop].
type hopView struct {
	TTL     int    `json:"ttl" yaml:"ttl"`
	Addr    string `json:"addr" yaml:"addr"`
	Latency string `json:"latency" yaml:"latency"`
	Reached bool   `json:"reached" yaml:"reached"`
}

func (h Hop) view() hopView {
	return hopView{
		TTL:     h.TTL,
		Addr:    h.AddrString(),
		Latency: h.Latency.String(),
		Reached: h.Reached,
	}
}

func (h Hop) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.view())
}

func (h Hop) MarshalYAML() (any, error) {
	return h.view(), nil
}

func (h Hop) String() string {
	reached := ""
	if h.Reached {
		reached = "  (reached)"
	}
	latency := "*"
	if !h.Unresolved() {
		latency = h.Latency.String()
	}
	return fmt.Sprintf("%-2d  %-39s  %s%s", h.TTL, h.AddrString(), latency, reached)
}

// Hops maps a TTL to the hop found with it.
type Hops map[int]Hop

// Result represents the result of a traceroute, mapping each destination to its hops.
type Result map[netip.Addr]Hops

// Hops returns the hops of dst ordered from the highest known TTL down to 1.
// TTLs without an entry are reported as unresolved.
func (r Result) Hops(dst netip.Addr) []Hop {
	hops := r[dst]
	if len(hops) == 0 {
		return []Hop{}
	}
	top := slices.Max(slices.Collect(maps.Keys(hops)))
	out := make([]Hop, 0, top)
	for ttl := top; ttl >= 1; ttl-- {
		if h, ok := hops[ttl]; ok {
			out = append(out, h)
			continue
		}
		out = append(out, Hop{TTL: ttl})
	}
	return out
}

// Path returns the hops of dst in ascending TTL order, see [Result.Hops].
func (r Result) Path(dst netip.Addr) []Hop {
	hops := r.Hops(dst)
	slices.Reverse(hops)
	return hops
}

// Destinations returns the destinations of the result in a stable order.
func (r Result) Destinations() []netip.Addr {
	dsts := slices.Collect(maps.Keys(r))
	slices.SortFunc(dsts, func(a, b netip.Addr) int { return a.Compare(b) })
	return dsts
}

// Clone returns a deep copy of the result.
func (r Result) Clone() Result {
	c := make(Result, len(r))
	for dst, hops := range r {
		c[dst] = maps.Clone(hops)
	}
	return c
}
