// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/netip"
	"regexp"

	"github.com/telekom/hoptrace/internal/logger"
)

var (
	errNoIPv4       = errors.New("no IPv4 address")
	ipv4Pattern     = regexp.MustCompile(`\b(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\b`)
	errNotIPv4Input = errors.New("only IPv4 destinations can be traced")
)

// Resolver looks up the addresses of a host. [net.Resolver] implements it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// ResolveDestinations returns the IPv4 address of every host in order.
// Hosts that are IPv4 literals are used as they are, all others are looked up
// and their first IPv4 address is used. Hosts that cannot be resolved are
// skipped and reported in the returned error.
func ResolveDestinations(ctx context.Context, r Resolver, hosts []string) ([]netip.Addr, error) {
	log := logger.FromContext(ctx)

	var (
		dsts []netip.Addr
		errs []error
	)
	for _, host := range hosts {
		addr, err := resolve(ctx, r, host)
		if err != nil {
			log.WarnContext(ctx, "Failed to resolve destination", "host", host, "error", err)
			errs = append(errs, &ErrResolve{Host: host, Err: err})
			continue
		}
		log.DebugContext(ctx, "Resolved destination", "host", host, "addr", addr)
		dsts = append(dsts, addr)
	}
	return dsts, errors.Join(errs...)
}

func resolve(ctx context.Context, r Resolver, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if !addr.Is4() {
			return netip.Addr{}, errNotIPv4Input
		}
		return addr, nil
	}

	addrs, err := r.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return netip.Addr{}, err
	}
	for _, addr := range addrs {
		if addr = addr.Unmap(); addr.Is4() {
			return addr, nil
		}
	}
	return netip.Addr{}, errNoIPv4
}

// ExtractIPv4 returns the first IPv4 address found on every line of r,
// lines without one are skipped. It accepts the output of other tools
// like ping or dig as input.
func ExtractIPv4(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		for _, m := range ipv4Pattern.FindAllString(sc.Text(), -1) {
			if addr, err := netip.ParseAddr(m); err == nil && addr.Is4() {
				out = append(out, addr.String())
				break
			}
		}
	}
	return out, sc.Err()
}
