// Package sessions persists ordered conversation transcripts keyed by an
// opaque session identifier.
//
// A session is created on first reference to an unseen id and never
// explicitly destroyed; retention is a backend policy. No per-session
// locking is provided: concurrent appends for the same id race and the
// later append wins.
package sessions

import (
	"context"
	"errors"

	"github.com/applyflow/applyflow/pkg/turns"
)

// ErrStorageUnavailable is returned when the backing store cannot be
// reached. Callers fail the whole request rather than silently dropping
// history.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// Store persists session transcripts.
//
// Load returns the full ordered transcript for id, empty for an unseen id.
// Append durably adds newTurns after all prior turns; the write is
// all-or-nothing per call, and turns appended by a completed request are
// visible to the next Load for the same id.
type Store interface {
	Load(ctx context.Context, id string) ([]turns.Turn, error)
	Append(ctx context.Context, id string, newTurns []turns.Turn) error
	// Kind names the backend ("file", "redis", ...) for health reporting.
	Kind() string
}
