// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/netip"

	"github.com/telekom/hoptrace/internal/logger"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// baseEchoID is the smallest echo id handed out.
	baseEchoID = 30000
	// echoIDSpace is the number of distinct echo ids, the interval is [30000, 60000].
	echoIDSpace = 30001
	// maxIPTTL is the largest value the IPv4 TTL field can hold.
	maxIPTTL = 255
)

// randomEchoID returns a random echo id in the interval [30000, 60000].
func randomEchoID() uint16 {
	return uint16(rand.N(echoIDSpace) + baseEchoID) // #nosec G404 G115 // not used for crypto, bounded below 65536
}

// normalizeDestinations validates and de-duplicates the destinations,
// keeping the order in which they were given.
func normalizeDestinations(dsts []netip.Addr) ([]netip.Addr, error) {
	seen := make(map[netip.Addr]struct{}, len(dsts))
	out := make([]netip.Addr, 0, len(dsts))
	for _, dst := range dsts {
		dst = dst.Unmap()
		if !dst.Is4() {
			return nil, fmt.Errorf("invalid destination %q: only IPv4 addresses are supported", dst)
		}
		if _, ok := seen[dst]; ok {
			continue
		}
		seen[dst] = struct{}{}
		out = append(out, dst)
	}
	return out, nil
}

// logHops logs the hops of every destination in a structured format.
func logHops(ctx context.Context, res Result) {
	log := logger.FromContext(ctx)
	for _, dst := range res.Destinations() {
		for _, hop := range res.Path(dst) {
			log.DebugContext(ctx, hop.String(), "destination", dst)
		}
	}
}

// wrapError wraps an error with a message and logs it.
// It also records the error in the current OpenTelemetry span.
func wrapError(ctx context.Context, err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	log := logger.FromContext(ctx)
	span := trace.SpanFromContext(ctx)
	caser := cases.Title(language.English)

	log.ErrorContext(ctx, caser.String(msg), append([]any{"error", err}, args...)...)
	span.SetStatus(codes.Error, msg)
	span.RecordError(err)
	return fmt.Errorf("%s: %w", msg, err)
}
