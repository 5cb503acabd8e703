// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"encoding/binary"
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// localAddr is the source address of the probes in tests.
var localAddr = netip.MustParseAddr("198.51.100.10")

// ipDatagram prepends an IPv4 header to payload.
func ipDatagram(t testing.TB, src, dst netip.Addr, ttl int, payload []byte) []byte {
	t.Helper()
	h := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + len(payload),
		TTL:      ttl,
		Protocol: protocolICMP,
		Src:      net.IP(src.AsSlice()),
		Dst:      net.IP(dst.AsSlice()),
	}
	b, err := h.Marshal()
	require.NoError(t, err)
	return append(b, payload...)
}

// echoReplyDatagram answers probe, an echo request built by [BuildEchoRequest], as from.
func echoReplyDatagram(t testing.TB, from netip.Addr, probe []byte) []byte {
	t.Helper()
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEchoReply,
		Body: &icmp.Echo{
			ID:   int(binary.BigEndian.Uint16(probe[4:6])),
			Seq:  int(binary.BigEndian.Uint16(probe[6:8])),
			Data: probe[icmpHeaderLen:],
		},
	}
	b, err := msg.Marshal(nil)
	require.NoError(t, err)
	return ipDatagram(t, from, localAddr, 60, b)
}

// timeExceededDatagram is the answer of router to probe sent to dst whose TTL expired.
func timeExceededDatagram(t testing.TB, router, dst netip.Addr, probe []byte) []byte {
	t.Helper()
	msg := icmp.Message{
		Type: ipv4.ICMPTypeTimeExceeded,
		Body: &icmp.TimeExceeded{Data: ipDatagram(t, localAddr, dst, 1, probe)},
	}
	b, err := msg.Marshal(nil)
	require.NoError(t, err)
	return ipDatagram(t, router, localAddr, 250, b)
}

// unreachableDatagram builds a destination unreachable message with gopacket,
// quoting the given bytes of the original packet.
func unreachableDatagram(t testing.TB, router netip.Addr, quoted []byte) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	err := gopacket.SerializeLayers(buf, opts,
		&layers.IPv4{
			Version:  ipv4.Version,
			TTL:      61,
			Protocol: layers.IPProtocolICMPv4,
			SrcIP:    net.IP(router.AsSlice()),
			DstIP:    net.IP(localAddr.AsSlice()),
		},
		&layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4CodeHost),
		},
		gopacket.Payload(quoted),
	)
	require.NoError(t, err)
	return buf.Bytes()
}
