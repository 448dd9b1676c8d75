package session

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MariaFayed/flames-avatar/internal/bus"
	"github.com/MariaFayed/flames-avatar/internal/pose"
	"github.com/MariaFayed/flames-avatar/internal/transport"
)

// fakeSender records everything sent.
type fakeSender struct {
	mu        sync.Mutex
	envelopes []transport.Envelope
	binary    [][]byte
	texts     []string
	sendErr   error
}

func (f *fakeSender) SendEnvelope(env transport.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.envelopes = append(f.envelopes, env)
	return nil
}

func (f *fakeSender) SendBinary(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.binary = append(f.binary, b)
	return nil
}

func (f *fakeSender) SendText(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.texts = append(f.texts, s)
	return nil
}

func (f *fakeSender) envelopeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.envelopes)
}

func newTestBroadcaster(sender Sender, cfg BroadcastConfig) *Broadcaster {
	return NewBroadcaster(sender, cfg, bus.NewEventBus(), zerolog.Nop())
}

func TestBroadcaster_PoseRateCap(t *testing.T) {
	f := &fakeSender{}
	b := newTestBroadcaster(f, BroadcastConfig{PoseInterval: 50 * time.Millisecond})

	require.NoError(t, b.PublishPose(pose.Sample{Yaw: 0.1}))
	require.NoError(t, b.PublishPose(pose.Sample{Yaw: 0.2})) // inside the window, dropped

	assert.Equal(t, 1, f.envelopeCount())
	assert.Equal(t, 0.1, f.envelopes[0].Yaw)

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, b.PublishPose(pose.Sample{Yaw: 0.3}))
	assert.Equal(t, 2, f.envelopeCount())
}

func TestBroadcaster_PoseEnvelopeShape(t *testing.T) {
	f := &fakeSender{}
	b := newTestBroadcaster(f, BroadcastConfig{})

	require.NoError(t, b.PublishPose(pose.Sample{
		Yaw: -0.5, Pitch: 0.2, Roll: 0.1, BlinkLeft: 1, BlinkRight: 0,
	}))

	require.Len(t, f.envelopes, 1)
	env := f.envelopes[0]
	assert.Equal(t, transport.KindPose, env.Kind)
	assert.Equal(t, -0.5, env.Yaw)
	assert.Equal(t, 0.2, env.Pitch)
	assert.Equal(t, 1.0, env.BlinkLeft)
}

func TestBroadcaster_MalformedLandmarksDroppedSilently(t *testing.T) {
	f := &fakeSender{}
	b := newTestBroadcaster(f, BroadcastConfig{})

	err := b.PublishLandmarks(make(pose.LandmarkFrame, 3))
	assert.NoError(t, err)
	assert.Equal(t, 0, f.envelopeCount())

	// The stream recovers on the next good frame.
	lm := make(pose.LandmarkFrame, pose.FrameSize)
	assert.NoError(t, b.PublishLandmarks(lm))
	assert.Equal(t, 1, f.envelopeCount())
}

func TestBroadcaster_StreamPCMChunking(t *testing.T) {
	f := &fakeSender{}
	// 4 samples * 2 bytes = 8-byte chunks; crank the sample rate so the
	// real-time pacing is effectively instant.
	b := newTestBroadcaster(f, BroadcastConfig{
		SampleRate:   1_000_000,
		ChunkSamples: 4,
	})

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	err := b.StreamPCM(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.binary, 2)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, f.binary[0])
	assert.Equal(t, []byte{9, 10}, f.binary[1], "trailing partial chunk still goes out")
}

func TestBroadcaster_StreamPCMHonorsCancel(t *testing.T) {
	f := &fakeSender{}
	b := newTestBroadcaster(f, BroadcastConfig{
		SampleRate:   16000,
		ChunkSamples: 16000, // 1s per chunk: the ticker dominates
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	data := make([]byte, 16000*2*3) // 3 chunks
	start := time.Now()
	err := b.StreamPCM(ctx, bytes.NewReader(data))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBroadcaster_StopSendsSentinelOnce(t *testing.T) {
	f := &fakeSender{}
	b := newTestBroadcaster(f, BroadcastConfig{})

	b.Stop()
	b.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.texts, 1)
	assert.Equal(t, transport.StopSentinel, f.texts[0])
}

func TestBroadcaster_StopSurvivesSendFailure(t *testing.T) {
	f := &fakeSender{sendErr: assert.AnError}
	b := newTestBroadcaster(f, BroadcastConfig{})
	b.Stop() // must not panic or block
}
