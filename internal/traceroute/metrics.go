// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Probe kinds used as label values of the sent probes counter.
const (
	probeKindNew   = "new"
	probeKindRetry = "retry"
)

// metrics defines the metric collectors of the tracer
type metrics struct {
	probes     *prometheus.CounterVec
	replies    *prometheus.CounterVec
	discarded  prometheus.Counter
	exhausted  prometheus.Counter
	sendErrors prometheus.Counter
	inflight   prometheus.Gauge
	ceiling    *prometheus.GaugeVec
}

// newMetrics initializes metric collectors of the tracer
func newMetrics() *metrics {
	return &metrics{
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoptrace_probes_sent_total",
				Help: "Number of echo requests sent, partitioned by first sends and retries.",
			},
			[]string{"kind"},
		),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoptrace_replies_total",
				Help: "Number of ICMP replies attributed to a probe, partitioned by ICMP type.",
			},
			[]string{"type"},
		),
		discarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hoptrace_datagrams_discarded_total",
				Help: "Number of received datagrams that could not be attributed to a probe in flight.",
			},
		),
		exhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hoptrace_probes_exhausted_total",
				Help: "Number of probes that ran out of retries without an answer.",
			},
		),
		sendErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hoptrace_send_errors_total",
				Help: "Number of echo requests that could not be sent.",
			},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hoptrace_probes_in_flight",
				Help: "Number of probes sent but neither answered nor exhausted.",
			},
		),
		ceiling: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hoptrace_ttl_ceiling",
				Help: "Current TTL ceiling of a destination. It equals the hop count once the destination answered.",
			},
			[]string{"destination"},
		),
	}
}

// GetCollectors returns all metric collectors
func (m *metrics) GetCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.probes,
		m.replies,
		m.discarded,
		m.exhausted,
		m.sendErrors,
		m.inflight,
		m.ceiling,
	}
}
