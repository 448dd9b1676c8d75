package playback

import (
	"container/heap"
	"sync"
	"time"

	"github.com/MariaFayed/flames-avatar/internal/utterance"
)

// Timeline fires the viseme cues of one utterance at absolute instants
// anchored to the playback-start reference. Fire times are computed once up
// front; a single goroutine drains a min-heap, re-arming its timer for the
// next soonest cue. Cues whose instant has already passed (decode latency,
// slow scheduling) fire immediately rather than being dropped — every cue
// fires exactly once unless the batch is cancelled first.
type Timeline struct {
	mu     sync.Mutex
	events eventHeap
	fire   func(visemeID int)

	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
}

type timedEvent struct {
	at time.Time
	id int
}

// ScheduleTimeline arms a batch of timing events against start. Negative
// offsets are discarded. The returned Timeline must be cancelled when the
// utterance ends so stale cues cannot leak into the next playback window.
func ScheduleTimeline(start time.Time, events []utterance.TimingEvent, fire func(visemeID int)) *Timeline {
	t := &Timeline{
		fire: fire,
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	t.events = make(eventHeap, 0, len(events))
	for _, ev := range events {
		if ev.OffsetMs < 0 {
			continue
		}
		t.events = append(t.events, timedEvent{
			at: start.Add(time.Duration(ev.OffsetMs) * time.Millisecond),
			id: ev.VisemeID,
		})
	}
	heap.Init(&t.events)

	go t.run()
	return t
}

// Cancel stops all cues not yet fired. Safe to call more than once and after
// the batch has drained.
func (t *Timeline) Cancel() {
	t.quitOnce.Do(func() { close(t.quit) })
	<-t.done

	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()
}

// Armed reports how many cues have not fired yet.
func (t *Timeline) Armed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events.Len()
}

func (t *Timeline) run() {
	defer close(t.done)

	timer := time.NewTimer(0)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}

	for {
		t.mu.Lock()
		if t.events.Len() == 0 {
			t.mu.Unlock()
			return
		}
		next := t.events[0]
		delay := time.Until(next.at)
		if delay <= 0 {
			heap.Pop(&t.events)
			t.mu.Unlock()
			select {
			case <-t.quit:
				return
			default:
			}
			t.fire(next.id)
			continue
		}
		t.mu.Unlock()

		timer.Reset(delay)
		select {
		case <-t.quit:
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// eventHeap orders cues by absolute fire time.
type eventHeap []timedEvent

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(timedEvent)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}
