// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/netip"
	"sync"
	"time"

	"github.com/telekom/hoptrace/internal/traceroute"
)

var _ traceroute.Observer = (*Store)(nil)

// Store holds the hop table served by the api.
//
// It observes running traceroutes, so replies show up while a run is
// still in progress. The outcome of a finished run replaces the table
// of its destinations via [Store.Publish].
type Store struct {
	mu      sync.RWMutex
	result  traceroute.Result
	updated map[netip.Addr]time.Time
	ticks   uint64
	now     func() time.Time
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{
		result:  traceroute.Result{},
		updated: map[netip.Addr]time.Time{},
		now:     time.Now,
	}
}

// OnTick counts the ticks of all runs
func (s *Store) OnTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
}

// OnReply records the hop of a reply while its run is in progress.
// A reply of the destination itself drops the hops beyond it and any
// other TTL it was recorded at, so the destination is reached at most once.
func (s *Store) OnReply(dst, responder netip.Addr, ttl int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hops, ok := s.result[dst]
	if !ok {
		hops = traceroute.Hops{}
		s.result[dst] = hops
	}
	reached := responder == dst
	for k, hop := range hops {
		switch {
		case reached && (k > ttl || (hop.Addr == dst && k != ttl)):
			delete(hops, k)
		// a router answering beyond a recorded destination means the path grew
		case !reached && hop.Reached && k < ttl:
			delete(hops, k)
		}
	}
	hops[ttl] = traceroute.Hop{TTL: ttl, Addr: responder, Reached: reached}
	s.updated[dst] = s.now()
}

// Publish replaces the hops of every destination in res.
// Destinations not in res are kept.
func (s *Store) Publish(res traceroute.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for dst, hops := range res.Clone() {
		s.result[dst] = hops
		s.updated[dst] = now
	}
}

// Forget removes all destinations that are not in keep.
func (s *Store) Forget(keep []netip.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[netip.Addr]struct{}, len(keep))
	for _, dst := range keep {
		wanted[dst] = struct{}{}
	}
	for dst := range s.result {
		if _, ok := wanted[dst]; !ok {
			delete(s.result, dst)
			delete(s.updated, dst)
		}
	}
}

// Result returns a copy of the whole hop table.
func (s *Store) Result() traceroute.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result.Clone()
}

// Trace returns the trace of dst and whether dst is known.
func (s *Store) Trace(dst netip.Addr) (Trace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.result[dst]; !ok {
		return Trace{}, false
	}
	return newTrace(dst, s.result, s.updated[dst]), true
}

// Traces returns the traces of all destinations ordered by destination.
func (s *Store) Traces() []Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	traces := make([]Trace, 0, len(s.result))
	for _, dst := range s.result.Destinations() {
		traces = append(traces, newTrace(dst, s.result, s.updated[dst]))
	}
	return traces
}

// Ticks returns the number of ticks observed.
func (s *Store) Ticks() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks
}
