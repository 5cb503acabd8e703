// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

func TestDemultiplex(t *testing.T) {
	dst := netip.MustParseAddr("192.0.2.1")
	router := netip.MustParseAddr("10.0.0.6")
	probe := BuildEchoRequest(41234, 1)

	// A router rewriting the identifier of the quoted packet, the payload survives.
	rewritten := append([]byte{}, probe...)
	rewritten[4], rewritten[5] = 0, 1

	// A probe quoted without payload, as allowed by RFC 792.
	truncated := ipDatagram(t, localAddr, dst, 1, probe[:icmpHeaderLen])

	tests := []struct {
		name     string
		datagram []byte
		from     netip.Addr
		want     reply
	}{
		{
			name:     "echo reply",
			datagram: echoReplyDatagram(t, dst, probe),
			from:     dst,
			want:     reply{id: 41234, responder: dst, kind: ipv4.ICMPTypeEchoReply, ttl: 60},
		},
		{
			name:     "time exceeded",
			datagram: timeExceededDatagram(t, router, dst, probe),
			from:     router,
			want:     reply{id: 41234, responder: router, kind: ipv4.ICMPTypeTimeExceeded, ttl: 250},
		},
		{
			name:     "time exceeded with rewritten identifier",
			datagram: timeExceededDatagram(t, router, dst, rewritten),
			from:     router,
			want:     reply{id: 41234, responder: router, kind: ipv4.ICMPTypeTimeExceeded, ttl: 250},
		},
		{
			name:     "destination unreachable quoting header only",
			datagram: unreachableDatagram(t, router, truncated),
			from:     router,
			want:     reply{id: 41234, responder: router, kind: ipv4.ICMPTypeDestinationUnreachable, ttl: 61},
		},
		{
			name:     "responder falls back to outer source",
			datagram: timeExceededDatagram(t, router, dst, probe),
			from:     netip.Addr{},
			want:     reply{id: 41234, responder: router, kind: ipv4.ICMPTypeTimeExceeded, ttl: 250},
		},
		{
			name:     "responder is unmapped",
			datagram: timeExceededDatagram(t, router, dst, probe),
			from:     netip.AddrFrom16(router.As16()),
			want:     reply{id: 41234, responder: router, kind: ipv4.ICMPTypeTimeExceeded, ttl: 250},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := demultiplex(tt.datagram, tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDemultiplex_NotAttributable(t *testing.T) {
	dst := netip.MustParseAddr("192.0.2.1")
	router := netip.MustParseAddr("10.0.0.6")

	echoRequest := ipDatagram(t, router, localAddr, 64, BuildEchoRequest(40000, 1))

	foreignQuote, err := (&icmp.Message{
		Type: ipv4.ICMPTypeTimeExceeded,
		Body: &icmp.TimeExceeded{Data: []byte{1, 2, 3}},
	}).Marshal(nil)
	require.NoError(t, err)

	// A quoted UDP datagram of another traceroute running on the host.
	quotedUDP := ipDatagram(t, localAddr, dst, 1, make([]byte, icmpHeaderLen))
	quotedUDP[9] = 17

	// The quoted ICMP message is an echo reply rather than one of our requests.
	reply, err := (&icmp.Message{Type: ipv4.ICMPTypeEchoReply, Body: &icmp.Echo{ID: 40000, Seq: 1}}).Marshal(nil)
	require.NoError(t, err)
	quotedReply := ipDatagram(t, localAddr, dst, 1, reply)

	tests := []struct {
		name     string
		datagram []byte
	}{
		{name: "empty", datagram: nil},
		{name: "truncated ip header", datagram: echoRequest[:12]},
		{name: "truncated icmp header", datagram: echoRequest[:ipv4.HeaderLen+4]},
		{name: "echo request of another ping", datagram: echoRequest},
		{name: "time exceeded without quoted packet", datagram: ipDatagram(t, router, localAddr, 64, foreignQuote)},
		{name: "quoted udp datagram", datagram: unreachableDatagram(t, router, quotedUDP)},
		{name: "quoted echo reply", datagram: unreachableDatagram(t, router, quotedReply)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, err := demultiplex(tt.datagram, router)
				assert.ErrorIs(t, err, errNotAttributable)
			})
		})
	}
}

func TestDescribe(t *testing.T) {
	dst := netip.MustParseAddr("192.0.2.1")
	router := netip.MustParseAddr("10.0.0.6")

	got := describe(timeExceededDatagram(t, router, dst, BuildEchoRequest(40000, 1)))
	assert.Contains(t, got, "IPv4")
	assert.Contains(t, got, "ICMPv4(TimeExceeded")

	assert.Contains(t, describe([]byte{0x45, 0x00}), "error")
}
