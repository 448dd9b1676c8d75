// Presenter client: streams 16 kHz mono PCM and rate-capped pose telemetry to
// the session server, then signals stop. Audio comes from a WAV or raw PCM
// file standing in for the live capture device; pose telemetry can be
// replayed from a JSONL recording.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MariaFayed/flames-avatar/internal/bus"
	"github.com/MariaFayed/flames-avatar/internal/config"
	"github.com/MariaFayed/flames-avatar/internal/logging"
	"github.com/MariaFayed/flames-avatar/internal/metrics"
	"github.com/MariaFayed/flames-avatar/internal/pose"
	"github.com/MariaFayed/flames-avatar/internal/session"
	"github.com/MariaFayed/flames-avatar/internal/transport"
)

func main() {
	audioPath := flag.String("audio", "", "WAV or raw PCM file to stream (16 kHz mono 16-bit)")
	posePath := flag.String("pose", "", "optional JSONL pose recording to replay")
	flag.Parse()

	if err := run(*audioPath, *posePath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(audioPath, posePath string) error {
	if audioPath == "" {
		return fmt.Errorf("-audio is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()

	sid := uuid.NewString()
	log := logger.Zerolog().With().Str("session", sid).Logger()

	events := bus.NewEventBus()
	m := metrics.New()
	m.Observe(events)
	if cfg.Metrics.Enabled {
		m.Serve(cfg.Metrics.Addr, log)
	}

	wsURL, err := presenterURL(cfg, sid)
	if err != nil {
		return err
	}

	client := transport.NewClient(wsURL, cfg.Server.ReconnectDelay, cfg.Server.MaxBackoff, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect()

	// Give the connect loop a moment before streaming.
	deadline := time.Now().Add(10 * time.Second)
	for !client.IsConnected() {
		if time.Now().After(deadline) {
			return fmt.Errorf("server not reachable: %s", wsURL)
		}
		time.Sleep(100 * time.Millisecond)
	}

	b := session.NewBroadcaster(client, session.BroadcastConfig{
		PoseInterval: cfg.Tracking.PoseInterval,
		SampleRate:   cfg.Audio.SampleRate,
		Channels:     cfg.Audio.Channels,
		BitDepth:     cfg.Audio.BitDepth,
		ChunkSamples: cfg.Audio.ChunkSamples,
	}, events, log)
	defer b.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("interrupted")
		cancel()
	}()

	if posePath != "" {
		go replayPose(ctx, b, posePath, log)
	}

	pcm, err := loadPCM(audioPath)
	if err != nil {
		return fmt.Errorf("load audio: %w", err)
	}

	log.Info().Int("bytes", len(pcm)).Msg("streaming audio")
	if err := b.StreamPCM(ctx, bytes.NewReader(pcm)); err != nil && err != context.Canceled {
		return fmt.Errorf("stream audio: %w", err)
	}

	log.Info().Msg("stream finished")
	return nil
}

// loadPCM reads the file and strips a RIFF/WAVE container if present,
// returning bare PCM sample data.
func loadPCM(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return data, nil // raw PCM
	}

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			break
		}
		if id == "data" {
			return data[body : body+size], nil
		}
		off = body + size
		if size%2 == 1 {
			off++
		}
	}
	return nil, fmt.Errorf("no data chunk in %s", path)
}

// replayPose streams recorded pose samples, one JSON object per line, at the
// recording's nominal 30 Hz; the broadcaster's rate cap trims the rest.
func replayPose(ctx context.Context, b *session.Broadcaster, path string, log zerolog.Logger) {
	f, err := os.Open(path)
	if err != nil {
		log.Warn().Err(err).Msg("pose recording unavailable")
		return
	}
	defer f.Close()

	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var s pose.Sample
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			continue
		}
		if err := b.PublishPose(s); err != nil {
			log.Warn().Err(err).Msg("pose send failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// presenterURL builds the presenter endpoint with room and session id.
func presenterURL(cfg *config.Config, sid string) (string, error) {
	u, err := url.Parse(cfg.Server.URL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws/teacher-audio"
	q := u.Query()
	q.Set("roomId", cfg.Server.Room)
	q.Set("sid", sid)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
