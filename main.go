// Viewer client: receives pose telemetry, captions, and utterance halves from
// the session server and animates the character.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/MariaFayed/flames-avatar/internal/bus"
	"github.com/MariaFayed/flames-avatar/internal/config"
	"github.com/MariaFayed/flames-avatar/internal/logging"
	"github.com/MariaFayed/flames-avatar/internal/metrics"
	"github.com/MariaFayed/flames-avatar/internal/playback"
	"github.com/MariaFayed/flames-avatar/internal/session"
	"github.com/MariaFayed/flames-avatar/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
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

	viewer := session.NewViewer(cfg.Anim, playback.ClockPlayer{}, events, log)
	viewer.Start()
	defer viewer.Stop()

	stopWatch, err := config.Watch(log, func(next *config.Config) {
		log.Info().Msg("config changed on disk; restart to apply")
	})
	if err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
	} else {
		defer stopWatch()
	}

	wsURL, err := viewerURL(cfg, sid)
	if err != nil {
		return err
	}

	client := transport.NewClient(wsURL, cfg.Server.ReconnectDelay, cfg.Server.MaxBackoff, log)
	client.SetEnvelopeHandler(viewer.HandleEnvelope)
	client.SetConnectHandler(func() {
		events.Publish(bus.Event{Type: bus.EventTypeConnected, Data: nil})
	})
	client.SetDisconnectHandler(func() {
		// A dropped connection orphans in-flight state; start clean.
		viewer.Stop()
		viewer.Start()
		events.Publish(bus.Event{Type: bus.EventTypeDisconnected, Data: nil})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	tickRate := cfg.Render.TickRate
	if tickRate <= 0 {
		tickRate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	// Periodic queue gauges; the render frames themselves go out per tick.
	gauges := time.NewTicker(time.Second)
	defer gauges.Stop()

	last := time.Now()
	for {
		select {
		case <-sigCh:
			log.Info().Msg("shutting down")
			return nil

		case now := <-ticker.C:
			frame := viewer.Tick(now.Sub(last))
			last = now
			events.Publish(bus.Event{Type: bus.EventTypeRenderFrame, Data: map[string]any{
				"yaw": frame.Yaw, "pitch": frame.Pitch, "roll": frame.Roll,
				"weights": frame.Weights,
			}})

		case <-gauges.C:
			m.PendingUtterances.Set(float64(viewer.PendingUtterances()))
			m.QueueDepth.Set(float64(viewer.QueueDepth()))
		}
	}
}

// viewerURL builds the session endpoint with room, language, and session id.
func viewerURL(cfg *config.Config, sid string) (string, error) {
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
	u.Path = "/ws/student"
	q := u.Query()
	q.Set("roomId", cfg.Server.Room)
	q.Set("lang", cfg.Server.Language)
	q.Set("sid", sid)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
