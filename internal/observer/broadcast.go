// Package observer implements the observer/broadcast plane: copy-on-publish
// snapshot fan-out to subscribers, and the append-only telemetry CSV sink.
// Both are read-only with respect to simulation state -- only the
// orchestrator ever calls Publish or WriteFrame.
package observer

import (
	"sync"
	"time"

	"github.com/gavargas22/cascabel/internal/sim"
	"github.com/sirupsen/logrus"
)

// DefaultBacklog is the number of snapshots buffered per subscriber and,
// under back-pressure, the number of consecutive undeliverable publishes
// after which a subscriber is dropped.
const DefaultBacklog = 8

type subscriber struct {
	ch         chan sim.Snapshot
	fullStreak int
}

// Broadcaster fans a simulation's published snapshots out to zero or more
// subscribers (WebSocket connections, in-process test hooks). Publishing
// never blocks the orchestrator for long: a subscriber that cannot keep up
// either loses its oldest buffered snapshot to make room for the new one
// (drop-oldest, what the HTTP façade uses) or is given a short grace window
// (back-pressure) before being dropped outright once its backlog bound is
// exceeded.
type Broadcaster struct {
	mu           sync.Mutex
	subs         map[uint64]*subscriber
	nextID       uint64
	backlog      int
	backPressure bool
	log          *logrus.Entry
}

// NewBroadcaster builds a broadcaster with the given per-subscriber backlog
// bound. log may be nil.
func NewBroadcaster(backlog int, backPressure bool, log *logrus.Entry) *Broadcaster {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Broadcaster{
		subs:         make(map[uint64]*subscriber),
		backlog:      backlog,
		backPressure: backPressure,
		log:          log,
	}
}

// Subscribe registers a new subscriber and returns its id and receive-only
// channel. The channel is closed when the subscriber is dropped or the
// broadcaster is closed.
func (b *Broadcaster) Subscribe() (uint64, <-chan sim.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	s := &subscriber{ch: make(chan sim.Snapshot, b.backlog)}
	b.subs[id] = s
	return id, s.ch
}

// Unsubscribe removes and closes one subscriber's channel. Safe to call
// more than once for the same id.
func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[id]; ok {
		close(s.ch)
		delete(b.subs, id)
	}
}

// Publish fans one snapshot out to every live subscriber. Snapshots are
// immutable value copies by the time they reach here, so every subscriber
// sees the identical whole snapshot -- there is no torn read.
func (b *Broadcaster) Publish(snap sim.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.subs {
		select {
		case s.ch <- snap:
			s.fullStreak = 0
			continue
		default:
		}
		if b.backPressure {
			select {
			case s.ch <- snap:
				s.fullStreak = 0
				continue
			case <-time.After(50 * time.Millisecond):
			}
		} else {
			// drop-oldest: evict the buffered head to make room, so the
			// subscriber's backlog always holds the most recent snapshots
			// instead of stalling on the oldest one.
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- snap:
				s.fullStreak = 0
				continue
			default:
			}
		}
		s.fullStreak++
		if s.fullStreak >= b.backlog {
			if b.log != nil {
				b.log.WithField("subscriber", id).Warn("dropping slow subscriber past backlog bound")
			}
			// Discard the stale backlog so the reader observes the close
			// immediately instead of after the snapshots it fell behind on.
		drain:
			for {
				select {
				case <-s.ch:
				default:
					break drain
				}
			}
			close(s.ch)
			delete(b.subs, id)
		}
	}
}

// CloseAll closes every subscriber channel, e.g. when a simulation reaches
// a terminal state.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}

// SubscriberCount reports the number of live subscribers, mostly useful for
// tests and status endpoints.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
