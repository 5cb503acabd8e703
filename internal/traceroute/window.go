// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

// probeState is the bookkeeping of a probe in flight.
type probeState struct {
	// retries is the remaining retry budget.
	retries int
	// ids are the echo ids of every send of the probe that may still be answered.
	ids []uint16
	// seq is the insertion sequence number of the probe.
	seq uint64
}

// slot is an entry of the window's insertion order.
type slot struct {
	key ProbeKey
	seq uint64
}

// window is the insertion ordered set of probes in flight.
//
// States are indexed by key, the order slice remembers when each key was
// added. Removing a key only drops its state; the stale slot is compacted
// on the next walk. A slot is live only while its sequence number matches
// the state of its key, so a key removed and added again is not walked twice.
type window struct {
	order  []slot
	states map[ProbeKey]*probeState
	next   uint64
}

func newWindow(size int) *window {
	return &window{
		order:  make([]slot, 0, size),
		states: make(map[ProbeKey]*probeState, size),
	}
}

// Len returns the number of probes in flight.
func (w *window) Len() int {
	return len(w.states)
}

// add puts key into the window with the given retry budget.
// Adding a key that is already in flight resets its budget.
func (w *window) add(key ProbeKey, retries int) *probeState {
	if st, ok := w.states[key]; ok {
		st.retries = retries
		return st
	}
	w.next++
	st := &probeState{retries: retries, seq: w.next}
	w.states[key] = st
	w.order = append(w.order, slot{key: key, seq: st.seq})
	return st
}

// get returns the state of key if it is in flight.
func (w *window) get(key ProbeKey) (*probeState, bool) {
	st, ok := w.states[key]
	return st, ok
}

// remove drops key and returns its state. Removing an absent key is a no-op.
func (w *window) remove(key ProbeKey) (*probeState, bool) {
	st, ok := w.states[key]
	if ok {
		delete(w.states, key)
	}
	return st, ok
}

// keys compacts the order and returns a snapshot of the keys in flight,
// oldest first. The snapshot stays valid while the window is modified.
func (w *window) keys() []ProbeKey {
	live := w.order[:0]
	for _, s := range w.order {
		if st, ok := w.states[s.key]; ok && st.seq == s.seq {
			live = append(live, s)
		}
	}
	clear(w.order[len(live):])
	w.order = live

	keys := make([]ProbeKey, len(live))
	for i, s := range live {
		keys[i] = s.key
	}
	return keys
}
