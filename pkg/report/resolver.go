// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/telekom/hoptrace/internal/logger"
	"github.com/telekom/hoptrace/internal/traceroute"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLookupTimeout = 2 * time.Second
	// maxConcurrentLookups bounds the PTR queries in flight.
	maxConcurrentLookups = 16
)

// ErrNoName is returned when an address has no PTR record
var ErrNoName = errors.New("no PTR record")

// Resolver looks up the name of an address.
//
//go:generate go tool moq -out resolver_moq.go . Resolver
type Resolver interface {
	// LookupName returns the name of addr without the trailing dot
	LookupName(ctx context.Context, addr netip.Addr) (string, error)
}

// DNSResolver resolves names with PTR queries against a single nameserver.
type DNSResolver struct {
	nameserver string
	client     *dns.Client
}

// ResolverOption configures a [DNSResolver]
type ResolverOption func(*DNSResolver)

// WithTimeout sets the timeout of a single query
func WithTimeout(timeout time.Duration) ResolverOption {
	return func(r *DNSResolver) {
		r.client.Timeout = timeout
	}
}

// WithNetwork sets the network used for queries, "udp" or "tcp"
func WithNetwork(network string) ResolverOption {
	return func(r *DNSResolver) {
		r.client.Net = network
	}
}

// NewDNSResolver returns a resolver querying nameserver.
// A nameserver without port is queried on port 53.
func NewDNSResolver(nameserver string, opts ...ResolverOption) *DNSResolver {
	if ip := net.ParseIP(nameserver); ip != nil {
		nameserver = net.JoinHostPort(nameserver, "53")
	}
	r := &DNSResolver{
		nameserver: nameserver,
		client:     &dns.Client{Net: "udp", Timeout: defaultLookupTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewSystemResolver returns a resolver querying the first nameserver of resolvConf.
func NewSystemResolver(resolvConf string, opts ...ResolverOption) (*DNSResolver, error) {
	cfg, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolver configuration: %w", err)
	}
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("no nameserver configured in %s", resolvConf)
	}
	return NewDNSResolver(net.JoinHostPort(cfg.Servers[0], cfg.Port), opts...), nil
}

// LookupName returns the name of the first PTR record of addr.
func (r *DNSResolver) LookupName(ctx context.Context, addr netip.Addr) (string, error) {
	arpa, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", fmt.Errorf("invalid address %s: %w", addr, err)
	}

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)
	m.RecursionDesired = true

	res, _, err := r.client.ExchangeContext(ctx, m, r.nameserver)
	if err != nil {
		return "", fmt.Errorf("PTR query for %s failed: %w", addr, err)
	}
	if res.Rcode == dns.RcodeNameError {
		return "", ErrNoName
	}
	if res.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("PTR query for %s failed: %s", addr, dns.RcodeToString[res.Rcode])
	}
	for _, rr := range res.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	return "", ErrNoName
}

// Names resolves the names of all hop addresses of res.
// Addresses that cannot be resolved are left out.
func Names(ctx context.Context, r Resolver, res traceroute.Result) map[netip.Addr]string {
	log := logger.FromContext(ctx)

	addrs := map[netip.Addr]struct{}{}
	for _, hops := range res {
		for _, h := range hops {
			if !h.Unresolved() {
				addrs[h.Addr] = struct{}{}
			}
		}
	}

	var (
		mu    sync.Mutex
		names = make(map[netip.Addr]string, len(addrs))
		g     errgroup.Group
	)
	g.SetLimit(maxConcurrentLookups)
	for addr := range addrs {
		g.Go(func() error {
			name, err := r.LookupName(ctx, addr)
			if err != nil {
				log.DebugContext(ctx, "Failed to resolve hop name", "addr", addr, "error", err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			names[addr] = name
			return nil
		})
	}
	_ = g.Wait()
	return names
}
