package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ujione-id/ujione-backend/internal/config"
)

const subscriberBufferSize = 64

// Publisher is the narrow interface services use to emit events. They never
// know who, if anyone, is listening.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Hub fans events out to in-process subscribers keyed by exam id and mirrors
// every event onto a Redis Pub/Sub channel so out-of-process dashboards can
// attach. Publishing never blocks: a subscriber whose buffer is full misses
// the event.
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[*Subscriber]struct{}
	rdb  *redis.Client // optional; nil disables the mirror
	log  zerolog.Logger
}

// NewHub creates a Hub. rdb may be nil (no Redis mirror, e.g. in tests).
func NewHub(rdb *redis.Client, log zerolog.Logger) *Hub {
	return &Hub{
		subs: make(map[uuid.UUID]map[*Subscriber]struct{}),
		rdb:  rdb,
		log:  log.With().Str("component", "broadcast_hub").Logger(),
	}
}

// Subscriber receives all events for one exam until Close is called.
type Subscriber struct {
	C      chan Event
	examID uuid.UUID
	hub    *Hub
	once   sync.Once
}

// Subscribe registers an observer for one exam's events.
func (h *Hub) Subscribe(examID uuid.UUID) *Subscriber {
	sub := &Subscriber{
		C:      make(chan Event, subscriberBufferSize),
		examID: examID,
		hub:    h,
	}

	h.mu.Lock()
	if h.subs[examID] == nil {
		h.subs[examID] = make(map[*Subscriber]struct{})
	}
	h.subs[examID][sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Close unregisters the subscriber and closes its channel. Safe to call twice.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.subs[s.examID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.examID)
			}
		}
		h.mu.Unlock()
		close(s.C)
	})
}

// Publish delivers ev to every subscriber of ev.ExamID without blocking, then
// mirrors it to Redis. Slow subscribers drop the event, they never stall the
// publisher.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	h.mu.RLock()
	for sub := range h.subs[ev.ExamID] {
		select {
		case sub.C <- ev:
		default:
			h.log.Warn().
				Str("exam_id", ev.ExamID.String()).
				Str("event", string(ev.Type)).
				Msg("Subscriber buffer full, dropping event")
		}
	}
	h.mu.RUnlock()

	if h.rdb == nil {
		return
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Msg("Marshal broadcast event failed")
		return
	}
	if err := h.rdb.Publish(ctx, config.CacheKey.ExamEventsChannel(ev.ExamID.String()), raw).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Redis mirror publish failed")
	}
}
