package logging

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := New(&Config{
		LogDir:     t.TempDir(),
		Level:      LevelDebug,
		MaxHistory: 5,
		Console:    false,
	})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestNew_CreatesDatedLogFile(t *testing.T) {
	l := newTestLogger(t)

	info, err := os.Stat(l.Path())
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.True(t, strings.HasPrefix(info.Name(), "flamesavatar_"))
	assert.True(t, strings.HasSuffix(info.Name(), ".log"))
}

func TestComponent_TagsEntries(t *testing.T) {
	l := newTestLogger(t)

	comp := l.Component("sequencer")
	comp.Info().Msg("hello from component")
	require.NoError(t, l.file.Sync())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"sequencer"`)
	assert.Contains(t, string(data), "hello from component")
}

func TestRecord_HistoryIsBounded(t *testing.T) {
	l := newTestLogger(t)

	for i := 0; i < 10; i++ {
		l.Record(LevelInfo, "test", "entry")
	}

	got := l.History(0)
	assert.Len(t, got, 5, "history must stay at MaxHistory")
}

func TestHistory_LimitReturnsMostRecent(t *testing.T) {
	l := newTestLogger(t)

	l.Record(LevelInfo, "test", "first")
	l.Record(LevelInfo, "test", "second")
	l.Record(LevelInfo, "test", "third")

	got := l.History(2)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Message)
	assert.Equal(t, "third", got[1].Message)
}

func TestSetOnLog_StreamsEntries(t *testing.T) {
	l := newTestLogger(t)

	got := make(chan Entry, 1)
	l.SetOnLog(func(e Entry) { got <- e })
	l.Record(LevelWarn, "transport", "connection lost")

	select {
	case e := <-got:
		assert.Equal(t, "warn", e.Level)
		assert.Equal(t, "transport", e.Component)
	case <-time.After(time.Second):
		t.Fatal("stream callback never fired")
	}
}
