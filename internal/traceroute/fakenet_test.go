// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"net/netip"
	"os"
	"testing"
	"time"
)

var _ receiver = (*fakeNetwork)(nil)

// datagram is a packet queued for the receiver.
type datagram struct {
	from netip.Addr
	data []byte
}

// fakeNetwork answers probes like a network would, without any sockets.
// Replies are queued on send and handed out by ReadFrom, which reports an
// elapsed deadline as soon as the queue is empty.
type fakeNetwork struct {
	t testing.TB
	// routers maps a destination to the router answering each TTL.
	routers map[netip.Addr]map[int]netip.Addr
	// distance maps a destination to the TTL from which on it answers itself.
	distance map[netip.Addr]int
	// drop reports whether the given send of a probe is lost.
	drop func(key ProbeKey, attempt int) bool
	// sendErr is returned for the given send of a probe if set.
	sendErr func(key ProbeKey, attempt int) error
	// duplicate delivers every reply twice.
	duplicate bool

	sends  map[ProbeKey]int
	queue  []datagram
	closed bool
}

func newFakeNetwork(t testing.TB) *fakeNetwork {
	return &fakeNetwork{
		t:        t,
		routers:  map[netip.Addr]map[int]netip.Addr{},
		distance: map[netip.Addr]int{},
		sends:    map[ProbeKey]int{},
	}
}

// route sets up dst to be reached at the TTL following the last router.
func (n *fakeNetwork) route(dst netip.Addr, distance int, routers map[int]netip.Addr) {
	n.routers[dst] = routers
	n.distance[dst] = distance
}

func (n *fakeNetwork) send(dst netip.Addr, ttl int, msg []byte) error {
	key := ProbeKey{Destination: dst, TTL: ttl}
	n.sends[key]++
	attempt := n.sends[key]
	if n.sendErr != nil {
		if err := n.sendErr(key, attempt); err != nil {
			return err
		}
	}
	if n.drop != nil && n.drop(key, attempt) {
		return nil
	}

	probe := append([]byte{}, msg...)
	if d, ok := n.distance[dst]; ok && ttl >= d {
		n.deliver(dst, echoReplyDatagram(n.t, dst, probe))
		return nil
	}
	if router, ok := n.routers[dst][ttl]; ok {
		n.deliver(router, timeExceededDatagram(n.t, router, dst, probe))
	}
	return nil
}

func (n *fakeNetwork) deliver(from netip.Addr, data []byte) {
	n.queue = append(n.queue, datagram{from: from, data: data})
	if n.duplicate {
		n.queue = append(n.queue, datagram{from: from, data: data})
	}
}

func (n *fakeNetwork) ReadFrom(buf []byte, _ time.Time) (int, netip.Addr, error) {
	if len(n.queue) == 0 {
		return 0, netip.Addr{}, os.ErrDeadlineExceeded
	}
	d := n.queue[0]
	n.queue = n.queue[1:]
	return copy(buf, d.data), d.from, nil
}

func (n *fakeNetwork) Close() error {
	n.closed = true
	return nil
}

// addrs returns the rendered addresses of hops keyed by TTL.
func addrs(hops Hops) map[int]string {
	out := make(map[int]string, len(hops))
	for ttl, hop := range hops {
		out[ttl] = hop.AddrString()
	}
	return out
}
