// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/telekom/hoptrace/internal/logger"
	"github.com/telekom/hoptrace/internal/traceroute"
	"github.com/telekom/hoptrace/pkg/agent"
	"github.com/telekom/hoptrace/pkg/report"
)

const (
	defaultResolvConf = "/etc/resolv.conf"
	// namesTimeout bounds the PTR lookups, which also run after an interrupt
	namesTimeout = 5 * time.Second
)

// tracer holds the collaborators of the trace command
type tracer struct {
	newClient   func() traceroute.Client
	resolver    agent.Resolver
	newNamer    func(nameserver string) (report.Resolver, error)
	stdin       io.Reader
	openHostsAt func(path string) (io.ReadCloser, error)
}

// NewCmdTrace creates a new trace command
func NewCmdTrace() *cobra.Command {
	return newCmdTrace(&tracer{
		newClient: func() traceroute.Client { return traceroute.NewClient() },
		resolver:  net.DefaultResolver,
		newNamer: func(nameserver string) (report.Resolver, error) {
			if nameserver == "" {
				return report.NewSystemResolver(defaultResolvConf)
			}
			return report.NewDNSResolver(nameserver), nil
		},
		stdin: os.Stdin,
		openHostsAt: func(path string) (io.ReadCloser, error) {
			return os.Open(path) // #nosec G304 // path is given by the user
		},
	})
}

func newCmdTrace(t *tracer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace [flags] host...",
		Short: "Trace the path to one or more hosts",
		Long: "Trace the path to one or more hosts at once and print the hop table of every host.\n" +
			"Hosts are given as arguments or read from a file, one per line. Every line of the\n" +
			"file is searched for an IPv4 address, so the output of other tools can be piped in.\n" +
			"Sending ICMP probes requires the NET_RAW capability.",
		Example: "  hoptrace trace 192.0.2.1 example.com\n" +
			"  dig +short example.com | hoptrace trace --file - --output yaml",
		RunE: t.run,
	}

	defaults := traceroute.DefaultOptions()
	flags := cmd.Flags()
	flags.Int("batch-size", defaults.BatchSize, "maximum number of probes sent per tick and in flight")
	flags.Int("max-retry", defaults.MaxRetry, "number of times an unanswered probe is resent")
	flags.Duration("timeout", defaults.Timeout, "time to wait for replies between two ticks")
	flags.Int("start-ttl", defaults.StartTTL, "first TTL probed")
	flags.Int("max-ttl", defaults.MaxTTL, "TTL ceiling, probes are sent with TTLs below it")
	flags.Duration("running-budget", 0, "how long to keep waiting once all probes are sent (default timeout * max-retry)")
	flags.StringP("output", "o", string(report.FormatTable), "output format: table, yaml or json")
	flags.StringP("file", "f", "", "read hosts from a file, - reads from stdin")
	flags.Bool("names", false, "resolve the names of the hops with reverse DNS")
	flags.String("nameserver", "", "nameserver used to resolve hop names (default from "+defaultResolvConf+")")

	bindFlags(cmd, map[string]string{
		"batch-size":     "trace.batchSize",
		"max-retry":      "trace.maxRetry",
		"timeout":        "trace.timeout",
		"start-ttl":      "trace.startTTL",
		"max-ttl":        "trace.maxTTL",
		"running-budget": "trace.runningBudget",
		"output":         "trace.output",
		"file":           "trace.file",
		"names":          "trace.names",
		"nameserver":     "trace.nameserver",
	})

	return cmd
}

func (t *tracer) run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(logger.IntoContext(cmd.Context(), logger.NewLogger()), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := logger.FromContext(ctx)

	format := report.Format(viper.GetString("trace.output"))
	if err := format.Validate(); err != nil {
		return err
	}
	opts := traceroute.Options{
		BatchSize:     viper.GetInt("trace.batchSize"),
		MaxRetry:      viper.GetInt("trace.maxRetry"),
		Timeout:       viper.GetDuration("trace.timeout"),
		StartTTL:      viper.GetInt("trace.startTTL"),
		MaxTTL:        viper.GetInt("trace.maxTTL"),
		RunningBudget: viper.GetDuration("trace.runningBudget"),
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid trace options: %w", err)
	}

	hosts, err := t.hosts(args, viper.GetString("trace.file"))
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		return errors.New("no host to trace given")
	}

	dsts, err := agent.ResolveDestinations(ctx, t.resolver, hosts)
	if len(dsts) == 0 {
		return fmt.Errorf("no host could be resolved: %w", err)
	}
	if err != nil {
		log.WarnContext(ctx, "Some hosts are not traced", "error", err)
	}

	res, err := t.newClient().Run(ctx, dsts, &opts)
	if res == nil {
		return err
	}
	if err != nil {
		log.WarnContext(ctx, "Traceroute did not complete, the hop table is partial", "error", err)
	}

	var names map[netip.Addr]string
	if viper.GetBool("trace.names") {
		namer, nErr := t.newNamer(viper.GetString("trace.nameserver"))
		if nErr != nil {
			return fmt.Errorf("failed to create name resolver: %w", nErr)
		}
		nCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), namesTimeout)
		names = report.Names(nCtx, namer, res)
		cancel()
	}

	if wErr := report.Write(cmd.OutOrStdout(), format, res, names); wErr != nil {
		return errors.Join(err, wErr)
	}
	return err
}

// hosts returns the hosts given as arguments followed by those read from path.
func (t *tracer) hosts(args []string, path string) ([]string, error) {
	hosts := append([]string{}, args...)
	if path == "" {
		return hosts, nil
	}

	var r io.Reader
	if path == "-" {
		r = t.stdin
	} else {
		f, err := t.openHostsAt(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open hosts file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	found, err := agent.ExtractIPv4(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read hosts: %w", err)
	}
	return append(hosts, found...), nil
}
