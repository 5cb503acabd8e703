// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	instanceInfoMetricName = "hoptrace_instance_info"
	instanceInfoHelp       = "Ownership and platform metadata for this hoptrace instance. Emitted once per instance for alert routing and multi-team correlation."
)

// instanceInfoLabels are the metadata labels of the instance info metric besides instance_name.
var instanceInfoLabels = []string{"team_name", "team_email", "platform"}

// RegisterInstanceInfo registers the hoptrace_instance_info info-style metric on the given registry.
// It sets the gauge to 1 with the labels instance_name, team_name, team_email and platform.
// Metadata keys other than those labels are ignored, missing ones are exported as empty strings.
func RegisterInstanceInfo(registry prometheus.Registerer, instanceName string, metadata map[string]string) error {
	info := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: instanceInfoMetricName,
			Help: instanceInfoHelp,
		},
		append([]string{"instance_name"}, instanceInfoLabels...),
	)

	labels := prometheus.Labels{"instance_name": instanceName}
	for _, l := range instanceInfoLabels {
		labels[l] = metadata[l]
	}
	info.With(labels).Set(1)
	return registry.Register(info)
}
