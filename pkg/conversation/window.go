// Package conversation bounds the transcript shown to the model per request.
//
// The window is computed fresh from the full session transcript on every
// request and never mutates stored history.
package conversation

import (
	"github.com/rs/zerolog/log"

	"github.com/applyflow/applyflow/pkg/turns"
)

// TruncationMarker replaces the excess of an oversized tool-result payload.
const TruncationMarker = "[truncated]"

// DefaultMaxResultBytes bounds a single tool-result payload when truncation
// is enabled and no explicit threshold is configured.
const DefaultMaxResultBytes = 16 * 1024

// Policy is the retention/truncation configuration for the window.
type Policy struct {
	// MaxTurns is the maximum number of turns retained, most recent first.
	// Zero or negative means no bound.
	MaxTurns int
	// TruncateResults enables cutting oversized tool-result payloads.
	TruncateResults bool
	// MaxResultBytes is the per-result size threshold; defaults to
	// DefaultMaxResultBytes when unset.
	MaxResultBytes int
}

// DefaultPolicy mirrors the service defaults: keep the last 20 turns and
// truncate oversized tool results.
func DefaultPolicy() Policy {
	return Policy{
		MaxTurns:        20,
		TruncateResults: true,
		MaxResultBytes:  DefaultMaxResultBytes,
	}
}

// Window returns the bounded view of ts under p: the most recent MaxTurns
// turns in original order, with each retained oversized tool result replaced
// by a truncated copy. Pure function of its inputs; the input slice and its
// turns are never mutated.
func Window(ts []turns.Turn, p Policy) []turns.Turn {
	if len(ts) == 0 {
		return nil
	}

	start := 0
	if p.MaxTurns > 0 && len(ts) > p.MaxTurns {
		start = len(ts) - p.MaxTurns
	}
	window := ts[start:]

	out := make([]turns.Turn, len(window))
	copy(out, window)

	if !p.TruncateResults {
		return out
	}

	limit := p.MaxResultBytes
	if limit <= 0 {
		limit = DefaultMaxResultBytes
	}
	for i, t := range out {
		if t.Kind != turns.KindToolResult {
			continue
		}
		if truncated, ok := truncateResult(t, limit); ok {
			log.Debug().
				Str("tool_call_id", t.ToolCallID()).
				Int("limit", limit).
				Msg("conversation: truncated oversized tool result")
			out[i] = truncated
		}
	}
	return out
}

// truncateResult returns a truncated copy of a tool-result turn when its
// rendered payload exceeds limit. The turn's role and correlation id are
// preserved. Applying truncation to an already-truncated turn yields the
// same turn, which keeps the operation idempotent.
func truncateResult(t turns.Turn, limit int) (turns.Turn, bool) {
	content := t.ResultText()
	if len(content) <= limit {
		return t, false
	}

	cut := limit - len(TruncationMarker)
	if cut < 0 {
		cut = 0
	}
	out := t.Clone()
	out.Payload[turns.PayloadKeyResult] = content[:cut] + TruncationMarker
	out.Payload[turns.PayloadKeyTruncated] = true
	return out, true
}
