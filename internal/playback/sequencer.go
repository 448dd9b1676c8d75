// Package playback serializes matched utterances into strict one-at-a-time
// playback and fires their viseme cues against a wall-clock reference.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MariaFayed/flames-avatar/internal/utterance"
)

// Hooks receives playback lifecycle notifications. Nil funcs are skipped.
type Hooks struct {
	OnStart  func(id string)
	OnFinish func(id string, err error)
}

// Sequencer plays ready utterances in the order they became ready, never
// overlapping. A single drain goroutine pulls one utterance, anchors its
// timeline to the moment playback is requested, waits for the player to
// finish (success or failure both advance the queue), cancels any unfired
// cues, and pulls the next.
type Sequencer struct {
	player  Player
	onEvent func(visemeID int)
	hooks   Hooks
	log     zerolog.Logger

	mu    sync.Mutex
	queue []utterance.Ready
	wake  chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSequencer creates a stopped sequencer. onEvent is invoked for every
// timeline cue of the utterance currently playing.
func NewSequencer(player Player, onEvent func(visemeID int), hooks Hooks, logger zerolog.Logger) *Sequencer {
	return &Sequencer{
		player:  player,
		onEvent: onEvent,
		hooks:   hooks,
		log:     logger.With().Str("component", "sequencer").Logger(),
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the drain goroutine. A stopped sequencer can be started
// again; starting a running one is a no-op.
func (s *Sequencer) Start() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.done != nil {
		select {
		case <-s.done:
		default:
			return // already running
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.drain(ctx, done)
}

// Enqueue appends a ready utterance. Arrival order here is playback order.
func (s *Sequencer) Enqueue(u utterance.Ready) {
	s.mu.Lock()
	s.queue = append(s.queue, u)
	depth := len(s.queue)
	s.mu.Unlock()

	s.log.Debug().Str("id", u.ID).Int("queued", depth).Msg("utterance enqueued")

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// QueueLen reports utterances waiting behind the one currently playing.
func (s *Sequencer) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Stop aborts the current playback, drops everything still queued, and waits
// for the drain goroutine to exit. No-op on a sequencer that was never
// started; safe to call repeatedly.
func (s *Sequencer) Stop() {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.runMu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()
	<-done
}

func (s *Sequencer) drain(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		u, ok := s.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}
		if ctx.Err() != nil {
			return
		}
		s.playOne(ctx, u)
	}
}

func (s *Sequencer) next() (utterance.Ready, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return utterance.Ready{}, false
	}
	u := s.queue[0]
	s.queue = s.queue[1:]
	return u, true
}

// playOne runs a single utterance to completion. The wall-clock reference is
// captured at request time, before the player's own startup latency, so cue
// instants stay anchored even if audio begins late.
func (s *Sequencer) playOne(ctx context.Context, u utterance.Ready) {
	if s.hooks.OnStart != nil {
		s.hooks.OnStart(u.ID)
	}

	start := time.Now()
	tl := ScheduleTimeline(start, u.Timing, s.onEvent)
	defer tl.Cancel()

	err := s.player.Play(ctx, u.Audio)
	if err != nil {
		// A failed utterance still counts as finished; the queue must
		// stay live.
		s.log.Warn().Err(err).Str("id", u.ID).Msg("playback failed, advancing")
	} else {
		s.log.Debug().Str("id", u.ID).Dur("took", time.Since(start)).Msg("playback finished")
	}

	if s.hooks.OnFinish != nil {
		s.hooks.OnFinish(u.ID, err)
	}
}
