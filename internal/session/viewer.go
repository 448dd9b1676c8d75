// Package session orchestrates the two client roles: the viewer, which turns
// inbound session traffic into animation, and the presenter, which publishes
// pose telemetry and a live audio stream.
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MariaFayed/flames-avatar/internal/anim"
	"github.com/MariaFayed/flames-avatar/internal/bus"
	"github.com/MariaFayed/flames-avatar/internal/playback"
	"github.com/MariaFayed/flames-avatar/internal/pose"
	"github.com/MariaFayed/flames-avatar/internal/transport"
	"github.com/MariaFayed/flames-avatar/internal/utterance"
)

// Captions is the most recent text record, kept as passthrough display state.
type Captions struct {
	Source     string
	Translated string
}

// Viewer owns the inbound half of a session: it dispatches event records to
// the matcher, the sequencer, and the blend engine, and runs the animation
// tick. All shared state is owned by exactly one component; the viewer only
// routes.
type Viewer struct {
	engine  *anim.Engine
	matcher *utterance.Matcher
	seq     *playback.Sequencer
	events  *bus.EventBus
	log     zerolog.Logger

	mu       sync.Mutex
	captions Captions
}

// NewViewer wires matcher -> sequencer -> timeline -> engine. player decides
// what "playing" means; pass playback.ClockPlayer{} for headless operation.
func NewViewer(cfg anim.Config, player playback.Player, events *bus.EventBus, logger zerolog.Logger) *Viewer {
	v := &Viewer{
		engine: anim.NewEngine(cfg),
		events: events,
		log:    logger.With().Str("component", "viewer").Logger(),
	}

	hooks := playback.Hooks{
		OnStart: func(id string) {
			v.events.Publish(bus.Event{Type: bus.EventTypePlaybackStarted, Data: map[string]any{"id": id}})
		},
		OnFinish: func(id string, err error) {
			// Reset the mouth between utterances; the next one re-opens it.
			v.engine.SetViseme(0)
			if err != nil {
				v.events.Publish(bus.Event{Type: bus.EventTypePlaybackFailed, Data: map[string]any{"id": id, "error": err.Error()}})
				return
			}
			v.events.Publish(bus.Event{Type: bus.EventTypePlaybackDone, Data: map[string]any{"id": id}})
		},
	}

	v.seq = playback.NewSequencer(player, v.fireViseme, hooks, logger)
	v.matcher = utterance.NewMatcher(func(u utterance.Ready) {
		v.seq.Enqueue(u)
		v.events.Publish(bus.Event{Type: bus.EventTypeUtteranceReady, Data: map[string]any{"id": u.ID}})
	}, logger)

	return v
}

// Start launches the playback drain.
func (v *Viewer) Start() {
	v.seq.Start()
}

// HandleEnvelope routes one inbound event record. Unrecognized kinds are
// dropped without touching state.
func (v *Viewer) HandleEnvelope(env transport.Envelope) {
	switch env.Kind {
	case transport.KindPose:
		v.engine.SetPose(pose.Sample{
			Yaw:        env.Yaw,
			Pitch:      env.Pitch,
			Roll:       env.Roll,
			BlinkLeft:  env.BlinkLeft,
			BlinkRight: env.BlinkRight,
		})

	case transport.KindText:
		v.mu.Lock()
		v.captions = Captions{Source: env.SourceText, Translated: env.TranslatedText}
		v.mu.Unlock()
		v.events.Publish(bus.Event{Type: bus.EventTypeCaptionUpdated, Data: map[string]any{
			"source":     env.SourceText,
			"translated": env.TranslatedText,
		}})

	case transport.KindAudio:
		v.matcher.SubmitAudio(env.UtteranceID, env.AudioPayload)

	case transport.KindTiming:
		v.matcher.SubmitTiming(env.UtteranceID, env.TimingEvents)

	default:
		v.log.Debug().Str("kind", env.Kind).Msg("ignoring unknown record kind")
	}
}

// Tick advances the animation by dt and returns the render-facing frame.
func (v *Viewer) Tick(dt time.Duration) anim.Frame {
	return v.engine.Tick(dt)
}

// Captions returns the latest caption pair.
func (v *Viewer) Captions() Captions {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.captions
}

// PendingUtterances reports matcher entries still missing a half.
func (v *Viewer) PendingUtterances() int {
	return v.matcher.PendingCount()
}

// QueueDepth reports ready utterances waiting behind the current playback.
func (v *Viewer) QueueDepth() int {
	return v.seq.QueueLen()
}

// Stop tears the session down: abort current playback, drop the queue and
// pending halves, and drive the character back to rest. Weights decay to
// zero over the following ticks.
func (v *Viewer) Stop() {
	v.seq.Stop()
	v.matcher.Clear()
	v.engine.Reset()
	v.log.Info().Msg("viewer session stopped")
}

func (v *Viewer) fireViseme(id int) {
	v.engine.SetViseme(id)
	v.events.Publish(bus.Event{Type: bus.EventTypeVisemeFired, Data: map[string]any{"visemeId": id}})
}
