// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"strconv"

	"golang.org/x/net/ipv4"
)

const (
	// icmpHeaderLen is the length of every ICMP header we send or parse.
	icmpHeaderLen = 8
	// timestampLen is the length of the zeroed timestamp following the echo header.
	timestampLen = 8
	// payloadIDLen is the number of ASCII digits carrying the echo id in the payload.
	payloadIDLen = 6
	// echoRequestLen is the total length of an echo request built by [BuildEchoRequest].
	echoRequestLen = icmpHeaderLen + timestampLen + payloadIDLen

	// ipHeaderLengthMask extracts the header length in 32-bit words from the first IPv4 byte.
	ipHeaderLengthMask = 0x0F
	// byteMultiplier converts the header length from 32-bit words to bytes.
	byteMultiplier = 4

	// protocolICMP is the IANA protocol number of ICMP for IPv4.
	protocolICMP = 1
)

// errShortPacket is returned when a buffer is too small to hold the header being parsed.
var errShortPacket = errors.New("packet too short")

// IPHeader is the decoded subset of an IPv4 header the tracer needs.
type IPHeader struct {
	// Len is the header length in bytes.
	Len int
	// TTL is the remaining time-to-live of the datagram.
	TTL int
	// Protocol is the protocol number of the payload.
	Protocol int
	// Src is the source address.
	Src netip.Addr
	// Dst is the destination address.
	Dst netip.Addr
	// Payload holds everything after the header.
	Payload []byte
}

// ICMPHeader is a decoded ICMP header.
type ICMPHeader struct {
	Type    ipv4.ICMPType
	Code    int
	ID      uint16
	Seq     uint16
	Payload []byte
}

// Checksum computes the RFC 1071 internet checksum over b.
// The buffer is summed as big-endian 16-bit words, an odd trailing
// byte is padded with zero.
func Checksum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

// BuildEchoRequest returns an ICMP Echo Request carrying id in the header
// and, as six ASCII digits, in the payload after a zeroed timestamp.
//
// The payload copy of the id is a deliberate redundancy and no standard:
// some routers and kernels rewrite the identifier field of the quoted
// packet, the payload survives.
func BuildEchoRequest(id, seq uint16) []byte {
	msg := make([]byte, echoRequestLen)
	msg[0] = byte(ipv4.ICMPTypeEcho)
	msg[1] = 0
	binary.BigEndian.PutUint16(msg[4:6], id)
	binary.BigEndian.PutUint16(msg[6:8], seq)
	copy(msg[icmpHeaderLen+timestampLen:], fmt.Sprintf("%06d", id))

	// The checksum field is zero while summing and must be written last.
	binary.BigEndian.PutUint16(msg[2:4], Checksum(msg))
	return msg
}

// ParseIPHeader decodes the IPv4 header at the start of b.
func ParseIPHeader(b []byte) (IPHeader, error) {
	if len(b) < ipv4.HeaderLen {
		return IPHeader{}, fmt.Errorf("ip header: %w: %d bytes", errShortPacket, len(b))
	}
	if v := b[0] >> 4; v != ipv4.Version {
		return IPHeader{}, fmt.Errorf("ip header: unsupported version %d", v)
	}

	hl := int(b[0]&ipHeaderLengthMask) * byteMultiplier
	if hl < ipv4.HeaderLen || len(b) < hl {
		return IPHeader{}, fmt.Errorf("ip header: %w: header length %d, got %d bytes", errShortPacket, hl, len(b))
	}

	return IPHeader{
		Len:      hl,
		TTL:      int(b[8]),
		Protocol: int(b[9]),
		Src:      netip.AddrFrom4([4]byte(b[12:16])),
		Dst:      netip.AddrFrom4([4]byte(b[16:20])),
		Payload:  b[hl:],
	}, nil
}

// ParseICMPHeader decodes the ICMP header at the start of b.
func ParseICMPHeader(b []byte) (ICMPHeader, error) {
	if len(b) < icmpHeaderLen {
		return ICMPHeader{}, fmt.Errorf("icmp header: %w: %d bytes", errShortPacket, len(b))
	}
	return ICMPHeader{
		Type:    ipv4.ICMPType(b[0]),
		Code:    int(b[1]),
		ID:      binary.BigEndian.Uint16(b[4:6]),
		Seq:     binary.BigEndian.Uint16(b[6:8]),
		Payload: b[icmpHeaderLen:],
	}, nil
}

// PayloadID returns the echo id carried as ASCII digits in the payload.
// It reports false if the payload was truncated or does not hold digits.
func (h ICMPHeader) PayloadID() (uint16, bool) {
	if len(h.Payload) < timestampLen+payloadIDLen {
		return 0, false
	}
	digits := h.Payload[timestampLen : timestampLen+payloadIDLen]
	for _, d := range digits {
		if d < '0' || d > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseUint(string(digits), 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(id), true // #nosec G115 // bounded by ParseUint bitSize
}

// EchoID returns the probe identifier of an echo message.
// The payload digits take precedence over the header field.
func (h ICMPHeader) EchoID() uint16 {
	if id, ok := h.PayloadID(); ok && id != 0 {
		return id
	}
	return h.ID
}

// GuessHops estimates how many hops a datagram travelled from the TTL it
// arrived with, assuming the sender started at one of the common initial
// values 64, 128 or 255.
func GuessHops(ttl int) int {
	switch {
	case ttl <= 0:
		return 0
	case ttl > 128:
		return 256 - ttl
	case ttl > 64:
		return 128 - ttl
	default:
		return 64 - ttl
	}
}
