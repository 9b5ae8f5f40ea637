package realtime

import (
	"sync"
	"time"

	"uplora/pkg/metrics"
)

const defaultBuffer = 64

// Bus is the in-process subscriber registry. Broadcast never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	closed  bool
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Bus)

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

func NewBus(buffer int, opts ...Option) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	b := &Bus{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription is one live listener. Events stops delivering and is
// closed once Close runs or the bus shuts down.
type Subscription struct {
	id     uint64
	filter Filter
	guard  func(Event) bool
	ch     chan Event
	bus    *Bus
	once   sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) Filter() Filter {
	return s.filter
}

// Close is idempotent.
func (s *Subscription) Close() {
	s.bus.remove(s)
}

func (s *Subscription) accepts(e Event) bool {
	if !s.filter.Matches(e) {
		return false
	}
	return s.guard == nil || s.guard(e)
}

// Subscribe registers a listener. guard, when non-nil, is an extra check
// applied after the filter. Subscribing to a closed bus returns an already
// closed subscription.
func (b *Bus) Subscribe(filter Filter, guard func(Event) bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		filter: filter,
		guard:  guard,
		ch:     make(chan Event, b.buffer),
		bus:    b,
	}

	if b.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}

	b.subs[sub.id] = sub
	if b.metrics != nil {
		b.metrics.Subscribers.Inc()
	}
	return sub
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s.id]; ok {
		delete(b.subs, s.id)
		if b.metrics != nil {
			b.metrics.Subscribers.Dec()
		}
	}
	s.once.Do(func() { close(s.ch) })
}

// Publish stamps the event time if missing and broadcasts it locally.
func (b *Bus) Publish(e Event) {
	b.Broadcast(e)
}

// Broadcast delivers e to every matching subscriber and returns how many
// received it.
func (b *Bus) Broadcast(e Event) int {
	if e.At.IsZero() {
		e.At = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.EventsPublished.WithLabelValues(e.Type).Inc()
	}

	delivered := 0
	for _, sub := range b.subs {
		if !sub.accepts(e) {
			continue
		}
		select {
		case sub.ch <- e:
			delivered++
		default:
			if b.metrics != nil {
				b.metrics.EventsDropped.Inc()
			}
		}
	}
	return delivered
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription. Later subscriptions are closed at once.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		delete(b.subs, id)
		s := sub
		s.once.Do(func() { close(s.ch) })
	}
	if b.metrics != nil {
		b.metrics.Subscribers.Set(0)
	}
}
