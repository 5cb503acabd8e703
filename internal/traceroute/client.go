// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ Client = (*icmpClient)(nil)

// Client is able to run a traceroute to one or more destinations.
//
//go:generate go tool moq -out client_moq.go . Client
type Client interface {
	// Run executes the traceroute for the given destinations with the specified options.
	// Returns a Result containing the hops for each destination, or an error if the traceroute fails.
	Run(ctx context.Context, dsts []netip.Addr, opts *Options) (Result, error)
}

// ClientOption configures a [Client] created by [NewClient].
type ClientOption func(*icmpClient)

// WithObserver sets the observer notified about the progress of every run.
func WithObserver(o Observer) ClientOption {
	return func(c *icmpClient) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithMetrics registers the tracer metrics on reg.
// It panics if the metrics are already registered.
func WithMetrics(reg prometheus.Registerer) ClientOption {
	return func(c *icmpClient) {
		reg.MustRegister(c.metrics.GetCollectors()...)
	}
}

// icmpClient traces with ICMP echo requests over raw sockets.
type icmpClient struct {
	observer Observer
	metrics  *metrics
	// listen opens the socket receiving replies for the duration of a run.
	listen func() (receiver, error)
	// send transmits a single probe.
	send sender
}

// NewClient creates a new client performing traceroutes with ICMP echo requests.
// Running it requires NET_RAW capabilities.
func NewClient(opts ...ClientOption) Client {
	c := &icmpClient{
		observer: NoopObserver{},
		metrics:  newMetrics(),
		listen:   newRawReceiver,
		send:     sendRaw,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the traceroute for the given destinations.
// Nil options run with [DefaultOptions]. Without NET_RAW capabilities
// [ErrICMPNotAvailable] is returned before any probe is sent.
func (c *icmpClient) Run(ctx context.Context, dsts []netip.Addr, opts *Options) (res Result, err error) {
	if opts == nil {
		o := DefaultOptions()
		opts = &o
	}

	otelTracer := trace.SpanFromContext(ctx).TracerProvider().Tracer("traceroute.icmpClient")
	ctx, sp := otelTracer.Start(ctx, "Run", trace.WithAttributes(
		attribute.Int("traceroute.destinations.count", len(dsts)),
		attribute.Int("traceroute.options.batch_size", opts.BatchSize),
		attribute.Int("traceroute.options.max_retry", opts.MaxRetry),
		attribute.Int("traceroute.options.max_ttl", opts.MaxTTL),
		attribute.Stringer("traceroute.options.timeout", opts.Timeout),
	))
	defer sp.End()

	if err = opts.Validate(); err != nil {
		return nil, wrapError(ctx, err, "invalid traceroute options")
	}
	dsts, err = normalizeDestinations(dsts)
	if err != nil {
		return nil, wrapError(ctx, err, "invalid destinations")
	}

	recv, err := c.listen()
	if err != nil {
		return nil, wrapError(ctx, err, "failed to open ICMP socket")
	}
	defer func() {
		if cErr := recv.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("failed to close ICMP socket: %w", cErr)
		}
	}()

	t := newTracer(*opts, recv, c.send, c.observer, c.metrics)
	res, err = t.run(ctx, dsts)
	logHops(ctx, res)
	return res, err
}
