// Package events is a small bounded, fan-out event bus used by the bulk
// coordinator to publish the two outbound events spec.md §6 names:
// job.progress_updated and job.status_changed. Subscribers that fall
// behind have events dropped rather than blocking the publisher.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"blundertutor/telemetry/metrics"
	"blundertutor/telemetry/tracing"
)

// Event types this module emits.
const (
	TypeJobProgressUpdated = "job.progress_updated"
	TypeJobStatusChanged   = "job.status_changed"
)

// Event is the structured envelope published on the bus.
type Event struct {
	Time    time.Time      `json:"time"`
	Type    string         `json:"type"`
	TraceID string         `json:"trace_id,omitempty"`
	SpanID  string         `json:"span_id,omitempty"`
	Fields  map[string]any `json:"fields"`
}

// Subscription is a handle representing one consumer of events.
type Subscription interface {
	C() <-chan Event
	Close() error
	ID() int64
}

// BusStats are runtime counters for observability.
type BusStats struct {
	Subscribers int64
	Published   uint64
	Dropped     uint64
}

// Bus is the publish/subscribe surface.
type Bus interface {
	Publish(ev Event) error
	PublishCtx(ctx context.Context, ev Event) error
	Subscribe(buffer int) (Subscription, error)
	Unsubscribe(sub Subscription) error
	Stats() BusStats
}

// NewBus creates a bounded, in-process event bus.
func NewBus(provider metrics.Provider) Bus {
	if provider == nil {
		provider = metrics.NoOp()
	}
	return &eventBus{subs: make(map[int64]*subscriber), provider: provider}
}

type subscriber struct {
	id      int64
	ch      chan Event
	dropped atomic.Uint64
}

func (s *subscriber) C() <-chan Event { return s.ch }
func (s *subscriber) ID() int64       { return s.id }
func (s *subscriber) Close() error    { return nil }

type eventBus struct {
	mu        sync.RWMutex
	subs      map[int64]*subscriber
	nextID    int64
	published atomic.Uint64
	dropped   atomic.Uint64
	provider  metrics.Provider
}

func (b *eventBus) Publish(ev Event) error {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	b.published.Add(1)
	b.provider.IncCounter("blundertutor_events_published_total", 1)

	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
			s.dropped.Add(1)
			b.dropped.Add(1)
			b.provider.IncCounter("blundertutor_events_dropped_total", 1)
		}
	}
	return nil
}

func (b *eventBus) PublishCtx(ctx context.Context, ev Event) error {
	if ev.TraceID == "" && ev.SpanID == "" {
		if traceID, spanID := tracing.ExtractIDs(ctx); traceID != "" || spanID != "" {
			ev.TraceID = traceID
			ev.SpanID = spanID
		}
	}
	return b.Publish(ev)
}

func (b *eventBus) Subscribe(buffer int) (Subscription, error) {
	if buffer <= 0 {
		buffer = 64
	}
	id := atomic.AddInt64(&b.nextID, 1)
	sub := &subscriber{id: id, ch: make(chan Event, buffer)}
	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()
	return sub, nil
}

func (b *eventBus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	id := sub.ID()
	b.mu.Lock()
	s, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if ok {
		close(s.ch)
	}
	return nil
}

func (b *eventBus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BusStats{
		Subscribers: int64(len(b.subs)),
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
	}
}
