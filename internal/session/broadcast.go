package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MariaFayed/flames-avatar/internal/bus"
	"github.com/MariaFayed/flames-avatar/internal/pose"
	"github.com/MariaFayed/flames-avatar/internal/transport"
)

// Sender is the outbound half of a transport connection.
// *transport.Client satisfies it.
type Sender interface {
	SendEnvelope(transport.Envelope) error
	SendBinary([]byte) error
	SendText(string) error
}

// BroadcastConfig shapes the presenter's outbound streams.
type BroadcastConfig struct {
	PoseInterval time.Duration // min gap between pose records (~15 Hz)
	SampleRate   int           // PCM sample rate, Hz
	Channels     int
	BitDepth     int
	ChunkSamples int // samples per binary frame
}

// Broadcaster publishes the presenter's side of a session: rate-capped pose
// records derived from landmark frames, a continuous 16-bit LE PCM stream,
// and a stop sentinel on shutdown.
type Broadcaster struct {
	sender Sender
	cfg    BroadcastConfig
	events *bus.EventBus
	log    zerolog.Logger

	mu       sync.Mutex
	lastSent time.Time

	stopOnce sync.Once
}

// NewBroadcaster creates a broadcaster over an established sender.
func NewBroadcaster(sender Sender, cfg BroadcastConfig, events *bus.EventBus, logger zerolog.Logger) *Broadcaster {
	if cfg.PoseInterval <= 0 {
		cfg.PoseInterval = 66 * time.Millisecond
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.BitDepth <= 0 {
		cfg.BitDepth = 16
	}
	if cfg.ChunkSamples <= 0 {
		cfg.ChunkSamples = 4096
	}
	return &Broadcaster{
		sender: sender,
		cfg:    cfg,
		events: events,
		log:    logger.With().Str("component", "broadcast").Logger(),
	}
}

// PublishLandmarks derives a pose sample from one estimator tick and sends
// it, subject to the rate cap. A malformed frame is dropped for this tick;
// the next frame proceeds normally.
func (b *Broadcaster) PublishLandmarks(lm pose.LandmarkFrame) error {
	sample, err := pose.Estimate(lm)
	if err != nil {
		b.log.Debug().Err(err).Msg("dropping malformed landmark frame")
		return nil
	}
	return b.PublishPose(sample)
}

// PublishPose sends one pose record unless the rate cap suppresses it.
func (b *Broadcaster) PublishPose(s pose.Sample) error {
	b.mu.Lock()
	now := time.Now()
	if now.Sub(b.lastSent) < b.cfg.PoseInterval {
		b.mu.Unlock()
		b.events.Publish(bus.Event{Type: bus.EventTypePoseDropped, Data: nil})
		return nil
	}
	b.lastSent = now
	b.mu.Unlock()

	err := b.sender.SendEnvelope(transport.Envelope{
		Kind:       transport.KindPose,
		Yaw:        s.Yaw,
		Pitch:      s.Pitch,
		Roll:       s.Roll,
		BlinkLeft:  s.BlinkLeft,
		BlinkRight: s.BlinkRight,
	})
	if err != nil {
		return err
	}

	b.events.Publish(bus.Event{Type: bus.EventTypePoseSent, Data: map[string]any{
		"yaw": s.Yaw, "pitch": s.Pitch, "roll": s.Roll,
	}})
	return nil
}

// StreamPCM reads mono 16-bit LE PCM from r and sends it in fixed-size
// binary frames at real-time rate until EOF or ctx cancellation.
func (b *Broadcaster) StreamPCM(ctx context.Context, r io.Reader) error {
	bytesPerSample := b.cfg.BitDepth / 8
	chunkBytes := b.cfg.ChunkSamples * bytesPerSample * b.cfg.Channels
	chunkDur := time.Duration(b.cfg.ChunkSamples) * time.Second / time.Duration(b.cfg.SampleRate)

	buf := make([]byte, chunkBytes)
	ticker := time.NewTicker(chunkDur)
	defer ticker.Stop()

	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if sendErr := b.sender.SendBinary(chunk); sendErr != nil {
				return sendErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stop sends the end-of-session sentinel. Safe to call more than once; the
// sentinel goes out at most once and a send failure never blocks teardown.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		if err := b.sender.SendText(transport.StopSentinel); err != nil {
			b.log.Debug().Err(err).Msg("stop sentinel not delivered")
		}
	})
}
