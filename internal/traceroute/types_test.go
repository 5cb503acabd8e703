// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"encoding/json"
	"net/netip"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(o *Options)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Options) {}},
		{name: "no retries", modify: func(o *Options) { o.MaxRetry = 0 }},
		{name: "explicit budget", modify: func(o *Options) { o.RunningBudget = time.Minute }},
		{name: "zero batch size", modify: func(o *Options) { o.BatchSize = 0 }, wantErr: true},
		{name: "negative retries", modify: func(o *Options) { o.MaxRetry = -1 }, wantErr: true},
		{name: "zero timeout", modify: func(o *Options) { o.Timeout = 0 }, wantErr: true},
		{name: "negative budget", modify: func(o *Options) { o.RunningBudget = -time.Second }, wantErr: true},
		{name: "start ttl zero", modify: func(o *Options) { o.StartTTL = 0 }, wantErr: true},
		{name: "start ttl equals max ttl", modify: func(o *Options) { o.StartTTL = o.MaxTTL }, wantErr: true},
		{name: "max ttl beyond ip field", modify: func(o *Options) { o.MaxTTL = 256 }, wantErr: true},
		{
			name: "echo id space too small",
			modify: func(o *Options) {
				o.BatchSize = 10000
				o.MaxRetry = 5
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.modify(&o)
			err := o.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestOptions_budget(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 10*time.Second, o.budget())

	o.RunningBudget = 3 * time.Second
	assert.Equal(t, 3*time.Second, o.budget())
}

func TestResult_Hops(t *testing.T) {
	dst := netip.MustParseAddr("192.0.2.1")
	r5 := netip.MustParseAddr("10.0.0.5")
	r7 := netip.MustParseAddr("10.0.0.7")

	tests := []struct {
		name   string
		result Result
		want   []Hop
	}{
		{
			name:   "unknown destination",
			result: Result{},
			want:   []Hop{},
		},
		{
			name:   "no hops",
			result: Result{dst: {}},
			want:   []Hop{},
		},
		{
			name: "fills gaps down to ttl 1",
			result: Result{dst: {
				5: {TTL: 5, Addr: r5},
				7: {TTL: 7, Addr: r7},
				8: {TTL: 8, Addr: dst, Reached: true},
			}},
			want: []Hop{
				{TTL: 8, Addr: dst, Reached: true},
				{TTL: 7, Addr: r7},
				{TTL: 6},
				{TTL: 5, Addr: r5},
				{TTL: 4},
				{TTL: 3},
				{TTL: 2},
				{TTL: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.result.Hops(dst)
			if diff := cmp.Diff(tt.want, got, cmp.Comparer(func(a, b netip.Addr) bool { return a == b })); diff != "" {
				t.Errorf("Hops() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResult_Path(t *testing.T) {
	dst := netip.MustParseAddr("192.0.2.1")
	res := Result{dst: {2: {TTL: 2, Addr: dst, Reached: true}}}

	got := res.Path(dst)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].TTL)
	assert.True(t, got[0].Unresolved())
	assert.Equal(t, 2, got[1].TTL)
	assert.True(t, got[1].Reached)
}

func TestResult_DestinationsAndClone(t *testing.T) {
	a := netip.MustParseAddr("192.0.2.1")
	b := netip.MustParseAddr("10.0.0.1")
	res := Result{a: {1: {TTL: 1, Addr: a}}, b: {}}

	assert.Equal(t, []netip.Addr{b, a}, res.Destinations())

	c := res.Clone()
	c[a][2] = Hop{TTL: 2}
	assert.Len(t, res[a], 1, "clone must not share hop maps")
}

func TestHop_Rendering(t *testing.T) {
	router := Hop{TTL: 3, Addr: netip.MustParseAddr("10.0.0.3"), Latency: 2 * time.Millisecond}
	unresolved := Hop{TTL: 4}

	assert.Equal(t, "10.0.0.3", router.AddrString())
	assert.Equal(t, "?", unresolved.AddrString())
	assert.Contains(t, router.String(), "2ms")
	assert.Contains(t, unresolved.String(), "*")
	assert.Contains(t, Hop{TTL: 5, Addr: netip.MustParseAddr("10.0.0.5"), Reached: true}.String(), "(reached)")

	b, err := json.Marshal(unresolved)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ttl":4,"addr":"?","latency":"0s","reached":false}`, string(b))

	y, err := yaml.Marshal(router)
	require.NoError(t, err)
	assert.Contains(t, string(y), "addr: 10.0.0.3")
	assert.Contains(t, string(y), "latency: 2ms")
}
