// Package utterance pairs asynchronously-arriving audio payloads with their
// viseme timing annotations.
package utterance

import (
	"sync"

	"github.com/rs/zerolog"
)

// TimingEvent is one discrete viseme cue, offset in milliseconds from the
// start of the utterance's audio.
type TimingEvent struct {
	OffsetMs int `json:"offsetMillis"`
	VisemeID int `json:"visemeId"`
}

// Ready is a fully matched utterance: audio plus timing. Ownership moves to
// the playback layer on emit; the matcher keeps no reference.
type Ready struct {
	ID     string
	Audio  []byte
	Timing []TimingEvent
}

// pending accumulates the two halves of an utterance. The has flags matter:
// an empty timing list is still a valid half.
type pending struct {
	audio     []byte
	hasAudio  bool
	timing    []TimingEvent
	hasTiming bool
}

// Matcher correlates audio and timing halves by utterance ID. Either half may
// arrive first; a duplicate half overwrites the earlier one. Entries whose
// partner never arrives stay pending for the life of the session.
type Matcher struct {
	mu      sync.Mutex
	entries map[string]*pending
	emit    func(Ready)
	log     zerolog.Logger
}

// NewMatcher creates a matcher that hands each completed utterance to emit.
// Emit runs under the matcher's lock so utterances are handed off in the
// order they became ready; keep it cheap (an enqueue, not playback).
func NewMatcher(emit func(Ready), logger zerolog.Logger) *Matcher {
	return &Matcher{
		entries: make(map[string]*pending),
		emit:    emit,
		log:     logger.With().Str("component", "matcher").Logger(),
	}
}

// SubmitAudio records the audio half for id, promoting the utterance if the
// timing half is already present.
func (m *Matcher) SubmitAudio(id string, payload []byte) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.entry(id)
	if p.hasAudio {
		m.log.Debug().Str("id", id).Msg("duplicate audio half, overwriting")
	}
	p.audio = payload
	p.hasAudio = true
	m.promote(id, p)
}

// SubmitTiming records the timing half for id, promoting the utterance if the
// audio half is already present.
func (m *Matcher) SubmitTiming(id string, events []TimingEvent) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.entry(id)
	if p.hasTiming {
		m.log.Debug().Str("id", id).Msg("duplicate timing half, overwriting")
	}
	p.timing = events
	p.hasTiming = true
	m.promote(id, p)
}

// PendingCount reports how many utterances are still missing a half.
func (m *Matcher) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Clear drops all pending halves, e.g. on disconnect.
func (m *Matcher) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]*pending)
	m.mu.Unlock()
}

func (m *Matcher) entry(id string) *pending {
	p, ok := m.entries[id]
	if !ok {
		p = &pending{}
		m.entries[id] = p
	}
	return p
}

// promote emits and removes the entry once both halves are present.
// Caller holds the lock.
func (m *Matcher) promote(id string, p *pending) {
	if !p.hasAudio || !p.hasTiming {
		return
	}
	delete(m.entries, id)
	m.log.Debug().Str("id", id).Int("audioBytes", len(p.audio)).Int("events", len(p.timing)).Msg("utterance ready")
	m.emit(Ready{ID: id, Audio: p.audio, Timing: p.timing})
}
