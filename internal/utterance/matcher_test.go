package utterance

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(out *[]Ready) func(Ready) {
	return func(r Ready) { *out = append(*out, r) }
}

func TestMatcher_AudioFirst(t *testing.T) {
	var got []Ready
	m := NewMatcher(collect(&got), zerolog.Nop())

	m.SubmitAudio("u1", []byte("wav"))
	assert.Empty(t, got)
	assert.Equal(t, 1, m.PendingCount())

	m.SubmitTiming("u1", []TimingEvent{{OffsetMs: 0, VisemeID: 10}})
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].ID)
	assert.Equal(t, []byte("wav"), got[0].Audio)
	assert.Len(t, got[0].Timing, 1)
	assert.Equal(t, 0, m.PendingCount())
}

func TestMatcher_TimingFirst(t *testing.T) {
	var got []Ready
	m := NewMatcher(collect(&got), zerolog.Nop())

	m.SubmitTiming("u1", []TimingEvent{{OffsetMs: 40, VisemeID: 3}})
	assert.Empty(t, got)

	m.SubmitAudio("u1", []byte("wav"))
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].ID)
}

func TestMatcher_EmptyTimingIsAValidHalf(t *testing.T) {
	var got []Ready
	m := NewMatcher(collect(&got), zerolog.Nop())

	m.SubmitTiming("u1", nil)
	m.SubmitAudio("u1", []byte("wav"))

	require.Len(t, got, 1)
	assert.Empty(t, got[0].Timing)
}

func TestMatcher_DuplicateHalfLastWriteWins(t *testing.T) {
	var got []Ready
	m := NewMatcher(collect(&got), zerolog.Nop())

	m.SubmitAudio("u1", []byte("old"))
	m.SubmitAudio("u1", []byte("new"))
	m.SubmitTiming("u1", nil)

	require.Len(t, got, 1)
	assert.Equal(t, []byte("new"), got[0].Audio)
}

func TestMatcher_ReadinessOrderNotArrivalOrder(t *testing.T) {
	var got []Ready
	m := NewMatcher(collect(&got), zerolog.Nop())

	// u1's halves straddle u2's; u2 completes first.
	m.SubmitAudio("u1", []byte("a1"))
	m.SubmitAudio("u2", []byte("a2"))
	m.SubmitTiming("u2", nil)
	m.SubmitTiming("u1", nil)

	require.Len(t, got, 2)
	assert.Equal(t, "u2", got[0].ID)
	assert.Equal(t, "u1", got[1].ID)
}

func TestMatcher_IndependentIDsDoNotInterfere(t *testing.T) {
	var got []Ready
	m := NewMatcher(collect(&got), zerolog.Nop())

	m.SubmitAudio("u1", []byte("a1"))
	m.SubmitTiming("u2", nil)
	assert.Empty(t, got)
	assert.Equal(t, 2, m.PendingCount())
}

func TestMatcher_EmptyIDIgnored(t *testing.T) {
	var got []Ready
	m := NewMatcher(collect(&got), zerolog.Nop())

	m.SubmitAudio("", []byte("a"))
	m.SubmitTiming("", nil)

	assert.Empty(t, got)
	assert.Equal(t, 0, m.PendingCount())
}

func TestMatcher_ClearDropsPendingHalves(t *testing.T) {
	var got []Ready
	m := NewMatcher(collect(&got), zerolog.Nop())

	m.SubmitAudio("u1", []byte("a1"))
	m.Clear()
	assert.Equal(t, 0, m.PendingCount())

	// The orphaned half is gone; a new timing half starts a fresh entry.
	m.SubmitTiming("u1", nil)
	assert.Empty(t, got)
	assert.Equal(t, 1, m.PendingCount())
}

func TestMatcher_ReuseIDAfterPromotion(t *testing.T) {
	var got []Ready
	m := NewMatcher(collect(&got), zerolog.Nop())

	m.SubmitAudio("u1", []byte("first"))
	m.SubmitTiming("u1", nil)
	m.SubmitAudio("u1", []byte("second"))
	m.SubmitTiming("u1", nil)

	require.Len(t, got, 2)
	assert.Equal(t, []byte("second"), got[1].Audio)
}
