// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"encoding/binary"
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want uint16
	}{
		{name: "empty", in: nil, want: 0xffff},
		// Example from RFC 1071 section 3: the sum of these words is 0xddf2.
		{name: "rfc 1071 example", in: []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}, want: ^uint16(0xddf2)},
		{name: "odd length is padded", in: []byte{0x01}, want: ^uint16(0x0100)},
		{name: "carry is folded", in: []byte{0xff, 0xff, 0x00, 0x01}, want: ^uint16(0x0001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.in))
		})
	}
}

func TestBuildEchoRequest(t *testing.T) {
	msg := BuildEchoRequest(43210, 1)
	require.Len(t, msg, echoRequestLen)

	assert.Equal(t, byte(ipv4.ICMPTypeEcho), msg[0])
	assert.Equal(t, byte(0), msg[1])
	assert.Equal(t, uint16(43210), binary.BigEndian.Uint16(msg[4:6]))
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(msg[6:8]))
	assert.Equal(t, make([]byte, timestampLen), msg[8:16], "timestamp must be zero")
	assert.Equal(t, "043210", string(msg[16:]))

	// A message including its checksum sums up to zero.
	assert.Equal(t, uint16(0), Checksum(msg))

	// The message is understood by a regular ICMP parser.
	parsed, err := icmp.ParseMessage(protocolICMP, msg)
	require.NoError(t, err)
	echo, ok := parsed.Body.(*icmp.Echo)
	require.True(t, ok)
	assert.Equal(t, 43210, echo.ID)
	assert.Equal(t, 1, echo.Seq)
}

func TestParseIPHeader(t *testing.T) {
	h := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + 4,
		TTL:      57,
		Protocol: protocolICMP,
		Src:      net.ParseIP("10.0.0.1"),
		Dst:      net.ParseIP("192.0.2.1"),
	}
	raw, err := h.Marshal()
	require.NoError(t, err)

	t.Run("valid header", func(t *testing.T) {
		got, err := ParseIPHeader(append(raw, 1, 2, 3, 4))
		require.NoError(t, err)
		assert.Equal(t, ipv4.HeaderLen, got.Len)
		assert.Equal(t, 57, got.TTL)
		assert.Equal(t, protocolICMP, got.Protocol)
		assert.Equal(t, netip.MustParseAddr("10.0.0.1"), got.Src)
		assert.Equal(t, netip.MustParseAddr("192.0.2.1"), got.Dst)
		assert.Equal(t, []byte{1, 2, 3, 4}, got.Payload)
	})

	t.Run("header with options", func(t *testing.T) {
		withOpts := append([]byte{}, raw...)
		withOpts[0] = ipv4.Version<<4 | 6
		withOpts = append(withOpts, 0, 0, 0, 0, 0xaa)
		got, err := ParseIPHeader(withOpts)
		require.NoError(t, err)
		assert.Equal(t, 24, got.Len)
		assert.Equal(t, []byte{0xaa}, got.Payload)
	})

	t.Run("short buffer", func(t *testing.T) {
		_, err := ParseIPHeader(raw[:10])
		assert.True(t, errors.Is(err, errShortPacket))
	})

	t.Run("header length beyond buffer", func(t *testing.T) {
		bad := append([]byte{}, raw...)
		bad[0] = ipv4.Version<<4 | 15
		_, err := ParseIPHeader(bad)
		assert.True(t, errors.Is(err, errShortPacket))
	})

	t.Run("ipv6", func(t *testing.T) {
		bad := append([]byte{}, raw...)
		bad[0] = 6<<4 | 5
		_, err := ParseIPHeader(bad)
		assert.Error(t, err)
	})
}

func TestParseICMPHeader(t *testing.T) {
	got, err := ParseICMPHeader(BuildEchoRequest(30001, 7))
	require.NoError(t, err)
	assert.Equal(t, ipv4.ICMPTypeEcho, got.Type)
	assert.Equal(t, uint16(30001), got.ID)
	assert.Equal(t, uint16(7), got.Seq)
	assert.Len(t, got.Payload, timestampLen+payloadIDLen)

	_, err = ParseICMPHeader([]byte{8, 0, 0})
	assert.True(t, errors.Is(err, errShortPacket))
}

func TestICMPHeader_EchoID(t *testing.T) {
	tests := []struct {
		name      string
		header    ICMPHeader
		wantID    uint16
		wantDigit bool
	}{
		{
			name:      "payload digits win over header",
			header:    ICMPHeader{ID: 1234, Payload: append(make([]byte, timestampLen), "045678"...)},
			wantID:    45678,
			wantDigit: true,
		},
		{
			name:   "truncated payload falls back to header",
			header: ICMPHeader{ID: 1234, Payload: make([]byte, timestampLen)},
			wantID: 1234,
		},
		{
			name:   "non digit payload falls back to header",
			header: ICMPHeader{ID: 1234, Payload: append(make([]byte, timestampLen), "abcdef"...)},
			wantID: 1234,
		},
		{
			name:   "out of range digits fall back to header",
			header: ICMPHeader{ID: 1234, Payload: append(make([]byte, timestampLen), "999999"...)},
			wantID: 1234,
		},
		{
			name:      "zero digits fall back to header",
			header:    ICMPHeader{ID: 1234, Payload: append(make([]byte, timestampLen), "000000"...)},
			wantID:    1234,
			wantDigit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.header.PayloadID()
			assert.Equal(t, tt.wantDigit, ok)
			assert.Equal(t, tt.wantID, tt.header.EchoID())
		})
	}
}

func TestGuessHops(t *testing.T) {
	tests := []struct {
		ttl  int
		want int
	}{
		{ttl: 0, want: 0},
		{ttl: 57, want: 7},
		{ttl: 64, want: 0},
		{ttl: 120, want: 8},
		{ttl: 250, want: 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GuessHops(tt.ttl), "GuessHops(%d)", tt.ttl)
	}
}
