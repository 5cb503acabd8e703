// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/ipv4"
)

// errNotAttributable is returned for datagrams that cannot be traced back to a probe.
// Such datagrams are expected on a raw socket and are discarded by the tracer.
var errNotAttributable = errors.New("datagram not attributable to a probe")

// reply is a demultiplexed answer to one of our echo requests.
type reply struct {
	// id is the echo id of the probe that caused the reply.
	id uint16
	// responder is the address of the host that sent the reply.
	responder netip.Addr
	// kind is the ICMP type of the outer message.
	kind ipv4.ICMPType
	// ttl is the TTL the reply arrived with.
	ttl int
}

// demultiplex recovers the probe identifier from a raw datagram read from an
// ICMP raw socket. The datagram starts with the outer IPv4 header.
//
// Echo replies carry the identifier directly. Time exceeded and destination
// unreachable messages quote our original IP header and the first bytes of
// the echo request, so the identifier is read from the quoted ICMP header.
func demultiplex(datagram []byte, from netip.Addr) (reply, error) {
	outer, err := ParseIPHeader(datagram)
	if err != nil {
		return reply{}, fmt.Errorf("%w: outer %w", errNotAttributable, err)
	}
	if outer.Protocol != protocolICMP {
		return reply{}, fmt.Errorf("%w: outer protocol %d", errNotAttributable, outer.Protocol)
	}

	msg, err := ParseICMPHeader(outer.Payload)
	if err != nil {
		return reply{}, fmt.Errorf("%w: outer %w", errNotAttributable, err)
	}

	if !from.IsValid() {
		from = outer.Src
	}
	r := reply{responder: from.Unmap(), kind: msg.Type, ttl: outer.TTL}

	switch msg.Type {
	case ipv4.ICMPTypeEchoReply:
		r.id = msg.EchoID()
		return r, nil
	case ipv4.ICMPTypeTimeExceeded, ipv4.ICMPTypeDestinationUnreachable:
		id, err := quotedEchoID(msg.Payload)
		if err != nil {
			return reply{}, err
		}
		r.id = id
		return r, nil
	default:
		return reply{}, fmt.Errorf("%w: icmp type %v", errNotAttributable, msg.Type)
	}
}

// quotedEchoID extracts the echo id from the IP+ICMP packet quoted in an ICMP error.
func quotedEchoID(quoted []byte) (uint16, error) {
	inner, err := ParseIPHeader(quoted)
	if err != nil {
		return 0, fmt.Errorf("%w: quoted %w", errNotAttributable, err)
	}
	if inner.Protocol != protocolICMP {
		return 0, fmt.Errorf("%w: quoted protocol %d", errNotAttributable, inner.Protocol)
	}

	echo, err := ParseICMPHeader(inner.Payload)
	if err != nil {
		return 0, fmt.Errorf("%w: quoted %w", errNotAttributable, err)
	}
	if echo.Type != ipv4.ICMPTypeEcho {
		return 0, fmt.Errorf("%w: quoted icmp type %v", errNotAttributable, echo.Type)
	}
	return echo.EchoID(), nil
}

// describe summarises a datagram for diagnostics, e.g. "IPv4/ICMPv4(TimeExceeded)/Payload".
func describe(datagram []byte) string {
	pkt := gopacket.NewPacket(datagram, layers.LayerTypeIPv4, gopacket.NoCopy)
	names := make([]string, 0, len(pkt.Layers()))
	for _, l := range pkt.Layers() {
		name := l.LayerType().String()
		if icmp, ok := l.(*layers.ICMPv4); ok {
			name = fmt.Sprintf("%s(%s)", name, icmp.TypeCode)
		}
		names = append(names, name)
	}
	if el := pkt.ErrorLayer(); el != nil {
		names = append(names, "error: "+el.Error().Error())
	}
	return strings.Join(names, "/")
}
