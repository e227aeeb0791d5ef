package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishSubscribe(t *testing.T) {
	bus := New(logging.NewNop())
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(Event{Kind: KindTabCreated, TabID: "tab-1", URL: "https://example.com"})

	ev := recv(t, ch)
	assert.Equal(t, KindTabCreated, ev.Kind)
	assert.Equal(t, "tab-1", ev.TabID)
	assert.Equal(t, "https://example.com", ev.URL)
	assert.False(t, ev.At.IsZero(), "publish should stamp At")
}

func TestSubscribeFiltersKinds(t *testing.T) {
	bus := New(logging.NewNop())
	defer bus.Close()

	ch, cancel := bus.Subscribe(KindTabEvicted)
	defer cancel()

	bus.Publish(Event{Kind: KindTabCreated, TabID: "tab-1"})
	bus.Publish(Event{Kind: KindTabEvicted, TabID: "tab-2", Reason: "memory-pressure"})

	ev := recv(t, ch)
	assert.Equal(t, KindTabEvicted, ev.Kind)
	assert.Equal(t, "tab-2", ev.TabID)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra event: %+v", extra)
	default:
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := New(logging.NewNop())
	defer bus.Close()

	ch1, cancel1 := bus.Subscribe()
	defer cancel1()
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()

	bus.Publish(Event{Kind: KindTabSuspended, TabID: "tab-1"})

	assert.Equal(t, "tab-1", recv(t, ch1).TabID)
	assert.Equal(t, "tab-1", recv(t, ch2).TabID)
}

func TestCancelStopsDelivery(t *testing.T) {
	bus := New(logging.NewNop())
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()

	// Channel closed by cancel
	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic
	bus.Publish(Event{Kind: KindTabClosed, TabID: "tab-1"})

	// Double cancel is safe
	cancel()
}

func TestSlowSubscriberDrops(t *testing.T) {
	bus := New(logging.NewNop())
	bus.depth = 2
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		bus.Publish(Event{Kind: KindTabIdle, TabID: "tab-1"})
	}

	// Buffer holds 2, the remaining 3 are dropped
	assert.Equal(t, uint64(3), bus.Dropped())

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			assert.Equal(t, 2, count)
			return
		}
	}
}

func TestCloseShutsSubscribers(t *testing.T) {
	bus := New(logging.NewNop())

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Close()

	_, open := <-ch
	assert.False(t, open)

	// Subscribe after close returns a closed channel
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()
	_, open = <-ch2
	require.False(t, open)

	// Publish after close is a no-op
	bus.Publish(Event{Kind: KindTabCreated})
}
