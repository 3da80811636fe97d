// Package transport delivers raw tick frames to the engine. It is treated
// as an opaque byte-frame producer: the engine never inspects the wire
// format, only the bytes each Source hands it.
package transport

import "context"

// Handler is called once per inbound frame, synchronously, before the
// transport reads the next one. The pipeline must finish processing a
// frame before Handler returns.
type Handler func(frame []byte)

// Source is anything that can deliver a stream of raw tick frames until
// its context is canceled or the upstream connection closes.
type Source interface {
	// Run blocks, delivering frames to handler until ctx is canceled or
	// the source's connection closes on its own, in which case Run
	// returns a non-nil error so the driver can decide how to treat it.
	Run(ctx context.Context, handler Handler) error
	// Close releases any underlying connection. Safe to call after Run
	// has already returned.
	Close() error
}
