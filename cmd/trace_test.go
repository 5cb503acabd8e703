// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telekom/hoptrace/internal/traceroute"
	"github.com/telekom/hoptrace/pkg/report"
)

var (
	dst    = netip.MustParseAddr("203.0.113.9")
	router = netip.MustParseAddr("10.0.0.2")
)

type hostsResolver map[string]netip.Addr

func (h hostsResolver) LookupNetIP(_ context.Context, _, host string) ([]netip.Addr, error) {
	if a, ok := h[host]; ok {
		return []netip.Addr{a}, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func tracedResult() traceroute.Result {
	return traceroute.Result{
		dst: {
			2: {TTL: 2, Addr: router, Latency: 2 * time.Millisecond},
			3: {TTL: 3, Addr: dst, Latency: 4 * time.Millisecond, Reached: true},
		},
	}
}

func newTestTracer(client *traceroute.ClientMock, stdin string) *tracer {
	return &tracer{
		newClient: func() traceroute.Client { return client },
		resolver:  hostsResolver{"target.test": dst},
		newNamer: func(string) (report.Resolver, error) {
			return &report.ResolverMock{
				LookupNameFunc: func(_ context.Context, addr netip.Addr) (string, error) {
					if addr == router {
						return "gw.example.net", nil
					}
					return "", report.ErrNoName
				},
			}, nil
		},
		stdin: strings.NewReader(stdin),
		openHostsAt: func(string) (io.ReadCloser, error) {
			return nil, errors.New("no files in tests")
		},
	}
}

func execute(t *testing.T, tr *tracer, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := newCmdTrace(tr)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestTrace(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		stdin    string
		wantDsts []netip.Addr
		wantOut  string
	}{
		{
			name:     "host by name",
			args:     []string{"target.test"},
			wantDsts: []netip.Addr{dst},
			wantOut: "DEST:203.0.113.9\n" +
				"  1  ?\n" +
				"  2  10.0.0.2         2ms\n" +
				"  3  203.0.113.9      4ms\n",
		},
		{
			name:     "hosts from stdin",
			args:     []string{"--file", "-"},
			stdin:    "target is 203.0.113.9\nnothing here\n",
			wantDsts: []netip.Addr{dst},
			wantOut: "DEST:203.0.113.9\n" +
				"  1  ?\n" +
				"  2  10.0.0.2         2ms\n" +
				"  3  203.0.113.9      4ms\n",
		},
		{
			name:     "hop names",
			args:     []string{"--names", "203.0.113.9"},
			wantDsts: []netip.Addr{dst},
			wantOut: "DEST:203.0.113.9\n" +
				"  1  ?\n" +
				"  2  10.0.0.2         2ms         gw.example.net\n" +
				"  3  203.0.113.9      4ms\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &traceroute.ClientMock{
				RunFunc: func(_ context.Context, _ []netip.Addr, _ *traceroute.Options) (traceroute.Result, error) {
					return tracedResult(), nil
				},
			}

			out, err := execute(t, newTestTracer(client, tt.stdin), tt.args...)
			require.NoError(t, err)

			require.Len(t, client.RunCalls(), 1)
			assert.Equal(t, tt.wantDsts, client.RunCalls()[0].Dsts)
			if diff := cmp.Diff(tt.wantOut, out); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTrace_Options(t *testing.T) {
	client := &traceroute.ClientMock{
		RunFunc: func(_ context.Context, _ []netip.Addr, _ *traceroute.Options) (traceroute.Result, error) {
			return tracedResult(), nil
		},
	}

	_, err := execute(t, newTestTracer(client, ""),
		"--batch-size", "8", "--max-retry", "1", "--timeout", "250ms",
		"--start-ttl", "2", "--max-ttl", "16", "--output", "json", "203.0.113.9")
	require.NoError(t, err)

	require.Len(t, client.RunCalls(), 1)
	want := traceroute.Options{BatchSize: 8, MaxRetry: 1, Timeout: 250 * time.Millisecond, StartTTL: 2, MaxTTL: 16}
	assert.Equal(t, want, *client.RunCalls()[0].Opts)
}

func TestTrace_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		runErr  error
		wantRun bool
		wantOut bool
	}{
		{name: "no hosts", args: []string{}},
		{name: "unresolvable host", args: []string{"unknown.test"}},
		{name: "invalid output format", args: []string{"--output", "xml", "203.0.113.9"}},
		{name: "invalid options", args: []string{"--max-ttl", "0", "203.0.113.9"}},
		{name: "unreadable hosts file", args: []string{"--file", "hosts.txt"}},
		{
			name:    "traceroute impossible",
			args:    []string{"203.0.113.9"},
			runErr:  traceroute.ErrICMPNotAvailable,
			wantRun: true,
		},
		{
			name:    "cancelled traceroute prints partial table",
			args:    []string{"203.0.113.9"},
			runErr:  context.Canceled,
			wantRun: true,
			wantOut: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &traceroute.ClientMock{
				RunFunc: func(_ context.Context, _ []netip.Addr, _ *traceroute.Options) (traceroute.Result, error) {
					if errors.Is(tt.runErr, traceroute.ErrICMPNotAvailable) {
						return nil, tt.runErr
					}
					return tracedResult(), tt.runErr
				},
			}

			out, err := execute(t, newTestTracer(client, ""), tt.args...)
			require.Error(t, err)
			if tt.runErr != nil {
				assert.ErrorIs(t, err, tt.runErr)
			}
			assert.Equal(t, tt.wantRun, len(client.RunCalls()) == 1)
			assert.Equal(t, tt.wantOut, strings.HasPrefix(out, "DEST:203.0.113.9"))
		})
	}
}

func TestTrace_NamesAfterInterrupt(t *testing.T) {
	client := &traceroute.ClientMock{
		RunFunc: func(ctx context.Context, _ []netip.Addr, _ *traceroute.Options) (traceroute.Result, error) {
			return tracedResult(), ctx.Err()
		},
	}
	tr := newTestTracer(client, "")
	tr.newNamer = func(string) (report.Resolver, error) {
		return &report.ResolverMock{
			LookupNameFunc: func(ctx context.Context, addr netip.Addr) (string, error) {
				if err := ctx.Err(); err != nil {
					return "", err
				}
				if addr == router {
					return "gw.example.net", nil
				}
				return "", report.ErrNoName
			},
		}, nil
	}

	viper.Reset()
	t.Cleanup(viper.Reset)
	cmd := newCmdTrace(tr)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--names", "203.0.113.9"})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := cmd.ExecuteContext(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out.String(), "gw.example.net", "hop names must be resolved for the partial table")
}
