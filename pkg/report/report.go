// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/telekom/hoptrace/internal/traceroute"
	"gopkg.in/yaml.v3"
)

// Format is the output format of a report
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

// Validate checks that the format is supported
func (f Format) Validate() error {
	switch f {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q, must be one of table, yaml, json", string(f))
	}
}

// Trace is the path to a destination in ascending TTL order
type Trace struct {
	Destination string `json:"destination" yaml:"destination"`
	Reached     bool   `json:"reached" yaml:"reached"`
	Hops        []Hop  `json:"hops" yaml:"hops"`
}

// Hop is a single row of a [Trace]
type Hop struct {
	TTL     int    `json:"ttl" yaml:"ttl"`
	Addr    string `json:"addr" yaml:"addr"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Latency string `json:"latency,omitempty" yaml:"latency,omitempty"`
	Reached bool   `json:"reached" yaml:"reached"`
}

// Traces converts res into traces ordered by destination.
// Names may be nil.
func Traces(res traceroute.Result, names map[netip.Addr]string) []Trace {
	traces := make([]Trace, 0, len(res))
	for _, dst := range res.Destinations() {
		path := res.Path(dst)
		t := Trace{Destination: dst.String(), Hops: make([]Hop, 0, len(path))}
		for _, h := range path {
			hop := Hop{TTL: h.TTL, Addr: h.AddrString(), Reached: h.Reached}
			if !h.Unresolved() {
				hop.Name = names[h.Addr]
				hop.Latency = h.Latency.String()
			}
			t.Reached = t.Reached || h.Reached
			t.Hops = append(t.Hops, hop)
		}
		traces = append(traces, t)
	}
	return traces
}

// Write renders res in format f to w.
func Write(w io.Writer, f Format, res traceroute.Result, names map[netip.Addr]string) error {
	traces := Traces(res, names)
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(traces); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(traces); err != nil {
			return fmt.Errorf("failed to encode json report: %w", err)
		}
		return nil
	case FormatTable:
		return writeTable(w, traces)
	default:
		return f.Validate()
	}
}

// writeTable renders every trace as a "DEST:" header followed by one row per hop.
func writeTable(w io.Writer, traces []Trace) error {
	var b strings.Builder
	for i, t := range traces {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "DEST:%s\n", t.Destination)
		for _, h := range t.Hops {
			row := fmt.Sprintf(" %2d  %-15s", h.TTL, h.Addr)
			if h.Latency != "" {
				row += fmt.Sprintf("  %-10s", h.Latency)
			}
			if h.Name != "" {
				row += "  " + h.Name
			}
			b.WriteString(strings.TrimRight(row, " ") + "\n")
		}
		if !t.Reached {
			b.WriteString(" destination not reached\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
