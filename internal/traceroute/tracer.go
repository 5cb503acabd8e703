// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"
	"iter"
	"net/netip"
	"os"
	"time"

	"github.com/telekom/hoptrace/internal/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/ipv4"
)

// maxRandomIDDraws is how often a random echo id is drawn before the id
// space is scanned for a free one.
const maxRandomIDDraws = 16

// echoSeq is the sequence number of every echo request.
const echoSeq = 1

// echo is an echo id in use.
type echo struct {
	key  ProbeKey
	sent time.Time
}

// tracer holds the state of a single run. It is owned by the goroutine
// calling run and must not be shared.
type tracer struct {
	opts     Options
	observer Observer
	metrics  *metrics
	recv     receiver
	send     sender

	window   *window
	echoes   map[uint16]echo
	ceilings map[netip.Addr]int
	result   Result
	budget   time.Duration

	// next pulls the next probe from the destination/ttl sequence.
	next func() (ProbeKey, bool)
	// drained is set once the sequence is exhausted.
	drained bool
}

func newTracer(opts Options, recv receiver, send sender, obs Observer, m *metrics) *tracer {
	return &tracer{
		opts:     opts,
		observer: obs,
		metrics:  m,
		recv:     recv,
		send:     send,
		window:   newWindow(opts.BatchSize),
		echoes:   make(map[uint16]echo, opts.BatchSize),
		ceilings: map[netip.Addr]int{},
		result:   Result{},
		budget:   opts.budget(),
	}
}

// probes returns the lazy sequence of probes to send: every destination
// with TTLs ascending from the start TTL while below its ceiling.
// The ceiling is read on every step, so a destination answering early
// truncates its remaining probes.
func (t *tracer) probes(dsts []netip.Addr) iter.Seq[ProbeKey] {
	return func(yield func(ProbeKey) bool) {
		for _, dst := range dsts {
			for ttl := t.opts.StartTTL; ttl < t.ceilings[dst]; ttl++ {
				if !yield(ProbeKey{Destination: dst, TTL: ttl}) {
					return
				}
			}
		}
	}
}

// run probes all destinations until every probe is answered or exhausted,
// or the running budget is spent. If ctx is done, the current tick is
// finished and the partial result is returned along with the context error.
func (t *tracer) run(ctx context.Context, dsts []netip.Addr) (Result, error) {
	log := logger.FromContext(ctx)
	span := trace.SpanFromContext(ctx)

	for _, dst := range dsts {
		t.ceilings[dst] = t.opts.MaxTTL
		t.result[dst] = Hops{}
		t.metrics.ceiling.WithLabelValues(dst.String()).Set(float64(t.opts.MaxTTL))
	}

	next, stop := iter.Pull(t.probes(dsts))
	defer stop()
	t.next = next

	buf := make([]byte, mtuSize)
	ticks := 0
	for {
		if err := t.tick(ctx); err != nil {
			return t.result, err
		}
		ticks++
		span.AddEvent("Tick", trace.WithAttributes(
			attribute.Int("traceroute.tick", ticks),
			attribute.Int("traceroute.inflight", t.window.Len()),
		))

		if t.finished() {
			for _, key := range t.window.keys() {
				t.exhaust(ctx, key)
			}
			log.DebugContext(ctx, "Traceroute finished", "ticks", ticks, "budget", t.budget)
			return t.result, nil
		}
		if err := ctx.Err(); err != nil {
			log.DebugContext(ctx, "Traceroute cancelled", "ticks", ticks)
			return t.result, err
		}

		if err := t.receive(ctx, buf, time.Now().Add(t.opts.Timeout)); err != nil {
			return t.result, err
		}
	}
}

// receive handles datagrams until deadline. Stray traffic cannot delay the
// next tick since the deadline is fixed for the whole call.
func (t *tracer) receive(ctx context.Context, buf []byte, deadline time.Time) error {
	for {
		n, from, err := t.recv.ReadFrom(buf, deadline)
		switch {
		case errors.Is(err, os.ErrDeadlineExceeded):
			return nil
		case err != nil:
			return wrapError(ctx, err, "failed to read from ICMP socket")
		}
		t.handle(ctx, buf[:n], from)
	}
}

// finished reports whether the run can stop: no probes are left to send and
// all probes in flight are resolved or the running budget is overdrawn.
// Probes still in flight at that point are given up.
//
// The budget is charged from the first tick without new probes on. The
// default of Timeout * MaxRetry is overdrawn on the tick exhausting the
// last probe, so every probe gets all of its retries.
func (t *tracer) finished() bool {
	return t.drained && (t.window.Len() == 0 || t.budget < 0)
}

// tick walks the window once, resending probes with retries left and
// exhausting those without, then fills the remaining capacity with new probes.
func (t *tracer) tick(ctx context.Context) error {
	sent := 0
	for _, key := range t.window.keys() {
		st, ok := t.window.get(key)
		if !ok {
			continue
		}
		if st.retries <= 0 {
			t.exhaust(ctx, key)
			continue
		}
		if sent >= t.opts.BatchSize {
			continue
		}
		st.retries--
		if err := t.ping(ctx, key, st, probeKindRetry); err != nil {
			return err
		}
		sent++
	}

	fresh := 0
	for !t.drained && sent < t.opts.BatchSize && t.window.Len() < t.opts.BatchSize {
		key, ok := t.next()
		if !ok {
			t.drained = true
			break
		}
		st := t.window.add(key, t.opts.MaxRetry)
		if err := t.ping(ctx, key, st, probeKindNew); err != nil {
			return err
		}
		sent++
		fresh++
	}

	if t.drained && fresh == 0 {
		t.budget -= t.opts.Timeout
	}

	t.metrics.inflight.Set(float64(t.window.Len()))
	t.observer.OnTick()
	return nil
}

// ping sends one echo request for key under a fresh echo id.
// A failed send keeps the probe in flight, its retry budget covers the loss.
// Only missing privileges abort the run.
func (t *tracer) ping(ctx context.Context, key ProbeKey, st *probeState, kind string) error {
	log := logger.FromContext(ctx)

	id, err := t.allocateID()
	if err != nil {
		log.WarnContext(ctx, "Failed to allocate echo id", "probe", key, "error", err)
		t.metrics.sendErrors.Inc()
		return nil
	}
	t.echoes[id] = echo{key: key, sent: time.Now()}
	st.ids = append(st.ids, id)

	if err := t.send(key.Destination, key.TTL, BuildEchoRequest(id, echoSeq)); err != nil {
		if errors.Is(err, ErrICMPNotAvailable) {
			return wrapError(ctx, err, "failed to send echo request")
		}
		log.WarnContext(ctx, "Failed to send echo request", "probe", key, "id", id, "error", err)
		t.metrics.sendErrors.Inc()
		return nil
	}
	t.metrics.probes.WithLabelValues(kind).Inc()
	return nil
}

// allocateID returns an echo id that is not in use.
func (t *tracer) allocateID() (uint16, error) {
	for range maxRandomIDDraws {
		if id := randomEchoID(); !t.inUse(id) {
			return id, nil
		}
	}
	start := int(randomEchoID())
	for i := range echoIDSpace {
		id := uint16(baseEchoID + (start-baseEchoID+i)%echoIDSpace) // #nosec G115 // bounded by the id space
		if !t.inUse(id) {
			return id, nil
		}
	}
	return 0, errEchoIDsExhausted
}

func (t *tracer) inUse(id uint16) bool {
	_, ok := t.echoes[id]
	return ok
}

// handle demultiplexes a datagram and hands replies to our probes to pong.
func (t *tracer) handle(ctx context.Context, datagram []byte, from netip.Addr) {
	log := logger.FromContext(ctx)

	r, err := demultiplex(datagram, from)
	if err != nil {
		log.DebugContext(ctx, "Discarding datagram", "from", from, "error", err, "packet", describe(datagram))
		t.metrics.discarded.Inc()
		return
	}

	e, ok := t.echoes[r.id]
	if !ok {
		// Late or duplicate replies land here since their ids were released.
		log.DebugContext(ctx, "Discarding reply to unknown probe", "from", r.responder, "id", r.id, "type", r.kind)
		t.metrics.discarded.Inc()
		return
	}
	t.metrics.replies.WithLabelValues(r.kind.String()).Inc()

	if r.kind == ipv4.ICMPTypeEchoReply {
		log.DebugContext(ctx, "Received echo reply", "probe", e.key, "from", r.responder, "hopsGuess", GuessHops(r.ttl))
	}
	t.pong(ctx, e.key.Destination, r.responder, e.key.TTL, time.Since(e.sent))
}

// pong records the reply of responder to the probe sent to dst with ttl.
//
// When dst itself answered, its ceiling shrinks to ttl and everything
// recorded or in flight beyond it is purged as moot. Otherwise the router
// is recorded as the hop at ttl, overwriting an earlier answer: only one
// path is tracked per destination, multiple paths (ECMP) are not reconciled.
func (t *tracer) pong(ctx context.Context, dst, responder netip.Addr, ttl int, latency time.Duration) {
	if responder == dst {
		if !t.reached(ctx, dst, ttl, latency) {
			return
		}
	} else {
		t.release(ProbeKey{Destination: dst, TTL: ttl})
		if ttl >= t.ceilings[dst] {
			logger.FromContext(ctx).DebugContext(ctx, "Discarding hop beyond ceiling", "destination", dst, "ttl", ttl, "ceiling", t.ceilings[dst])
			return
		}
		t.record(dst, Hop{TTL: ttl, Addr: responder, Latency: latency})
	}
	t.observer.OnReply(dst, responder, ttl)
}

// reached handles dst answering the probe sent with ttl.
// It returns false if the answer is moot because dst answered a lower TTL before.
func (t *tracer) reached(ctx context.Context, dst netip.Addr, ttl int, latency time.Duration) bool {
	if ttl > t.ceilings[dst] {
		t.release(ProbeKey{Destination: dst, TTL: ttl})
		return false
	}
	t.ceilings[dst] = ttl
	t.metrics.ceiling.WithLabelValues(dst.String()).Set(float64(ttl))

	for k, hop := range t.result[dst] {
		if k > ttl || (hop.Addr == dst && k != ttl) {
			delete(t.result[dst], k)
		}
	}
	for k := ttl; k <= t.opts.MaxTTL; k++ {
		t.release(ProbeKey{Destination: dst, TTL: k})
	}

	logger.FromContext(ctx).DebugContext(ctx, "Destination reached", "destination", dst, "ttl", ttl, "latency", latency)
	t.record(dst, Hop{TTL: ttl, Addr: dst, Latency: latency, Reached: true})
	return true
}

// exhaust gives up on key. Its hop is recorded as unresolved unless it has
// become moot or was answered meanwhile.
func (t *tracer) exhaust(ctx context.Context, key ProbeKey) {
	t.release(key)
	t.metrics.exhausted.Inc()
	logger.FromContext(ctx).DebugContext(ctx, "Probe exhausted", "probe", key)

	if key.TTL > t.ceilings[key.Destination] {
		return
	}
	if _, ok := t.result[key.Destination][key.TTL]; !ok {
		t.record(key.Destination, Hop{TTL: key.TTL})
	}
}

// release removes key from the window and frees its echo ids.
// Releasing a key that is not in flight is a no-op.
func (t *tracer) release(key ProbeKey) {
	st, ok := t.window.remove(key)
	if !ok {
		return
	}
	for _, id := range st.ids {
		delete(t.echoes, id)
	}
}

func (t *tracer) record(dst netip.Addr, hop Hop) {
	hops, ok := t.result[dst]
	if !ok {
		hops = Hops{}
		t.result[dst] = hops
	}
	hops[hop.TTL] = hop
}
