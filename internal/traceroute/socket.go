// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// mtuSize is the size of the receive buffer. Replies are never larger than an Ethernet frame.
const mtuSize = 1500

// receiver reads raw ICMP datagrams including their IPv4 header.
type receiver interface {
	// ReadFrom blocks until a datagram arrives or the deadline passes.
	// It returns [os.ErrDeadlineExceeded] when the deadline passed.
	ReadFrom(buf []byte, deadline time.Time) (int, netip.Addr, error)
	Close() error
}

// sender transmits one ICMP message to a destination with the given TTL.
type sender func(dst netip.Addr, ttl int, msg []byte) error

// rawReceiver is a [receiver] on a raw IPPROTO_ICMP socket.
// It requires NET_RAW capabilities to be created successfully.
type rawReceiver struct {
	fd int
}

// newRawReceiver opens and binds the raw socket that receives all ICMP
// traffic of the host for the duration of a run.
func newRawReceiver() (receiver, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.IPPROTO_ICMP)
	if err != nil {
		if isPermissionError(err) {
			return nil, fmt.Errorf("%w: %w", ErrICMPNotAvailable, err)
		}
		return nil, fmt.Errorf("failed to create raw ICMP socket: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to bind raw ICMP socket: %w", err)
	}
	return &rawReceiver{fd: fd}, nil
}

// ReadFrom reads the next datagram. The kernel prepends the IPv4 header on raw sockets.
func (r *rawReceiver) ReadFrom(buf []byte, deadline time.Time) (int, netip.Addr, error) {
	for {
		wait := time.Until(deadline)
		// A zero SO_RCVTIMEO blocks forever, so an elapsed deadline must not reach the kernel.
		if wait <= 0 {
			return 0, netip.Addr{}, os.ErrDeadlineExceeded
		}

		tv := unix.NsecToTimeval(wait.Nanoseconds())
		if err := unix.SetsockoptTimeval(r.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
			return 0, netip.Addr{}, fmt.Errorf("failed to set receive timeout: %w", err)
		}

		n, from, err := unix.Recvfrom(r.fd, buf, 0)
		switch {
		case err == nil:
			return n, addrFromSockaddr(from), nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			return 0, netip.Addr{}, os.ErrDeadlineExceeded
		default:
			return 0, netip.Addr{}, fmt.Errorf("failed to read from raw ICMP socket: %w", err)
		}
	}
}

// Close closes the raw socket.
func (r *rawReceiver) Close() error {
	return unix.Close(r.fd)
}

// sendRaw opens a dedicated raw socket, sets its TTL, sends msg to dst and closes
// the socket again. The socket exists only to carry the per-packet TTL.
func sendRaw(dst netip.Addr, ttl int, msg []byte) (err error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.IPPROTO_ICMP)
	if err != nil {
		if isPermissionError(err) {
			return fmt.Errorf("%w: %w", ErrICMPNotAvailable, err)
		}
		return fmt.Errorf("failed to create raw ICMP socket: %w", err)
	}
	defer func() {
		err = errors.Join(err, unix.Close(fd))
	}()

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TTL, ttl); err != nil {
		return fmt.Errorf("failed to set ttl %d: %w", ttl, err)
	}

	if err := unix.Sendto(fd, msg, 0, &unix.SockaddrInet4{Addr: dst.As4()}); err != nil {
		return fmt.Errorf("failed to send echo request to %s: %w", dst, err)
	}
	return nil
}

// addrFromSockaddr converts the source of a received datagram.
func addrFromSockaddr(sa unix.Sockaddr) netip.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrFrom4(a.Addr)
	case *unix.SockaddrInet6:
		return netip.AddrFrom16(a.Addr).Unmap()
	default:
		return netip.Addr{}
	}
}
