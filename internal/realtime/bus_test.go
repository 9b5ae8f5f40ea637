package realtime

import (
	"testing"
	"time"

	"uplora/pkg/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestFilterMatches(t *testing.T) {
	t1, t2 := uuid.New(), uuid.New()
	u1, u2 := uuid.New(), uuid.New()

	tests := []struct {
		name   string
		filter Filter
		event  Event
		want   bool
	}{
		{"empty filter receives team event", Filter{}, Event{TeamID: ptr(t1)}, true},
		{"team filter same team", Filter{TeamID: ptr(t1)}, Event{TeamID: ptr(t1)}, true},
		{"team filter other team", Filter{TeamID: ptr(t2)}, Event{TeamID: ptr(t1)}, false},
		{"team filter unscoped event", Filter{TeamID: ptr(t1)}, Event{}, true},
		{"user filter same user", Filter{UserID: ptr(u1)}, Event{UserID: ptr(u1)}, true},
		{"user filter other user", Filter{UserID: ptr(u1)}, Event{UserID: ptr(u2)}, false},
		{"user filter team event", Filter{UserID: ptr(u1)}, Event{TeamID: ptr(t1)}, true},
		{"both dimensions one mismatch", Filter{TeamID: ptr(t1), UserID: ptr(u1)}, Event{TeamID: ptr(t1), UserID: ptr(u2)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}
}

func TestBroadcastTeamFilter(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	t1, t2 := uuid.New(), uuid.New()
	all := bus.Subscribe(Filter{}, nil)
	other := bus.Subscribe(Filter{TeamID: ptr(t2)}, nil)

	n := bus.Broadcast(Event{Type: EventVideoStatus, TeamID: ptr(t1)})
	assert.Equal(t, 1, n)

	select {
	case e := <-all.Events():
		assert.Equal(t, EventVideoStatus, e.Type)
		assert.False(t, e.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("unfiltered subscriber did not receive team event")
	}

	select {
	case e := <-other.Events():
		t.Fatalf("subscriber for another team received %v", e)
	default:
	}
}

func TestBroadcastGuard(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	allowed := uuid.New()
	sub := bus.Subscribe(Filter{}, func(e Event) bool {
		return e.TeamID == nil || *e.TeamID == allowed
	})

	assert.Equal(t, 0, bus.Broadcast(Event{Type: EventVideoStatus, TeamID: ptr(uuid.New())}))
	assert.Equal(t, 1, bus.Broadcast(Event{Type: EventVideoStatus, TeamID: ptr(allowed)}))
	assert.Len(t, sub.Events(), 1)
}

func TestBroadcastDropsForFullSubscriber(t *testing.T) {
	m := metrics.New()
	bus := NewBus(1, WithMetrics(m))
	defer bus.Close()

	slow := bus.Subscribe(Filter{}, nil)
	fast := bus.Subscribe(Filter{}, nil)

	assert.Equal(t, 2, bus.Broadcast(Event{Type: EventVideoStatus}))
	<-fast.Events()

	done := make(chan int)
	go func() { done <- bus.Broadcast(Event{Type: EventVideoStatus}) }()

	select {
	case n := <-done:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}

	assert.Len(t, slow.Events(), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsDropped))
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	m := metrics.New()
	bus := NewBus(1, WithMetrics(m))

	sub := bus.Subscribe(Filter{}, nil)
	assert.Equal(t, 1, bus.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Subscribers))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, bus.Len())
	assert.Equal(t, float64(0), testutil.ToFloat64(m.Subscribers))

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestBusCloseEndsSubscriptions(t *testing.T) {
	bus := NewBus(1)
	sub := bus.Subscribe(Filter{}, nil)

	bus.Close()
	bus.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	sub.Close()

	late := bus.Subscribe(Filter{}, nil)
	_, ok = <-late.Events()
	require.False(t, ok)
	assert.Equal(t, 0, bus.Broadcast(Event{Type: EventVideoStatus}))
}

func TestChannelFor(t *testing.T) {
	teamID, userID := uuid.New(), uuid.New()

	assert.Equal(t, "uplora:events:team:"+teamID.String(), ChannelFor(Event{TeamID: &teamID, UserID: &userID}))
	assert.Equal(t, "uplora:events:user:"+userID.String(), ChannelFor(Event{UserID: &userID}))
	assert.Equal(t, "uplora:events:all", ChannelFor(Event{}))
}

func TestVideoEventScope(t *testing.T) {
	videoID, uploader, teamID := uuid.New(), uuid.New(), uuid.New()

	teamEvent := VideoEvent(EventVideoStatus, videoID, uploader, &teamID, map[string]any{"status": "POSTED"})
	require.NotNil(t, teamEvent.TeamID)
	assert.Equal(t, teamID, *teamEvent.TeamID)
	assert.Nil(t, teamEvent.UserID)
	assert.Equal(t, videoID, teamEvent.Payload["id"])
	assert.Equal(t, "POSTED", teamEvent.Payload["status"])

	personal := VideoEvent(EventVideoDeleted, videoID, uploader, nil, nil)
	assert.Nil(t, personal.TeamID)
	require.NotNil(t, personal.UserID)
	assert.Equal(t, uploader, *personal.UserID)
}
