package conversation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applyflow/applyflow/pkg/turns"
)

func makeTranscript(n int) []turns.Turn {
	ts := make([]turns.Turn, 0, n)
	for i := 0; i < n; i++ {
		ts = append(ts, turns.NewUserTextTurn(fmt.Sprintf("message %d", i)))
	}
	return ts
}

func TestWindowBound(t *testing.T) {
	for _, tc := range []struct {
		length, max, want int
	}{
		{length: 0, max: 5, want: 0},
		{length: 3, max: 5, want: 3},
		{length: 5, max: 5, want: 5},
		{length: 30, max: 5, want: 5},
		{length: 30, max: 0, want: 30}, // unbounded
	} {
		got := Window(makeTranscript(tc.length), Policy{MaxTurns: tc.max})
		assert.Len(t, got, tc.want, "L=%d N=%d", tc.length, tc.max)
	}
}

func TestWindowKeepsLastTurnsInOrder(t *testing.T) {
	ts := makeTranscript(10)
	got := Window(ts, Policy{MaxTurns: 4})
	require.Len(t, got, 4)
	for i, tn := range got {
		assert.Equal(t, fmt.Sprintf("message %d", 6+i), tn.Text())
	}
}

func TestWindowDoesNotMutateInput(t *testing.T) {
	big := strings.Repeat("x", 2*DefaultMaxResultBytes)
	ts := []turns.Turn{turns.NewToolResultTurn("call-1", big)}

	got := Window(ts, Policy{MaxTurns: 10, TruncateResults: true})
	require.Len(t, got, 1)
	assert.Equal(t, big, ts[0].ResultText(), "stored history must stay intact")
	assert.NotEqual(t, big, got[0].ResultText())
}

func TestTruncationPreservesRoleAndID(t *testing.T) {
	big := strings.Repeat("y", 100)
	ts := []turns.Turn{turns.NewToolResultTurn("call-7", big)}

	got := Window(ts, Policy{MaxTurns: 1, TruncateResults: true, MaxResultBytes: 40})
	require.Len(t, got, 1)
	assert.Equal(t, turns.RoleTool, got[0].Role)
	assert.Equal(t, "call-7", got[0].ToolCallID())
	assert.Len(t, got[0].ResultText(), 40)
	assert.True(t, strings.HasSuffix(got[0].ResultText(), TruncationMarker))
}

func TestTruncationIdempotent(t *testing.T) {
	big := strings.Repeat("z", 500)
	p := Policy{MaxTurns: 5, TruncateResults: true, MaxResultBytes: 64}
	once := Window([]turns.Turn{turns.NewToolResultTurn("call-1", big)}, p)
	twice := Window(once, p)
	require.Len(t, twice, 1)
	assert.Equal(t, once[0].ResultText(), twice[0].ResultText())
	assert.Equal(t, once[0].Payload[turns.PayloadKeyTruncated], twice[0].Payload[turns.PayloadKeyTruncated])
}

func TestWindowLeavesSmallResultsAlone(t *testing.T) {
	ts := []turns.Turn{turns.NewToolResultTurn("call-1", "small")}
	got := Window(ts, Policy{MaxTurns: 5, TruncateResults: true, MaxResultBytes: 64})
	require.Len(t, got, 1)
	assert.Equal(t, "small", got[0].ResultText())
	_, marked := got[0].Payload[turns.PayloadKeyTruncated]
	assert.False(t, marked)
}
