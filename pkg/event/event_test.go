package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBus_PublishSynchronous(t *testing.T) {
	bus := New(Synchronous())

	var got []Event
	bus.Subscribe("job.completed", func(_ context.Context, ev Event) {
		got = append(got, ev)
	})

	bus.Publish(context.Background(), "job.completed", 42)
	bus.Publish(context.Background(), "job.failed", 7)

	require.Len(t, got, 1)
	require.Equal(t, "job.completed", got[0].Name)
	require.Equal(t, 42, got[0].Data)
}

func TestBus_Wildcard(t *testing.T) {
	bus := New(Synchronous())

	var names []string
	bus.Subscribe(Wildcard, func(_ context.Context, ev Event) {
		names = append(names, ev.Name)
	})

	bus.Publish(context.Background(), "a", nil)
	bus.Publish(context.Background(), "b", nil)

	require.Equal(t, []string{"a", "b"}, names)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New(Synchronous())

	calls := 0
	unsubscribe := bus.Subscribe("x", func(context.Context, Event) { calls++ })
	bus.Subscribe("x", func(context.Context, Event) { calls += 10 })

	bus.Publish(context.Background(), "x", nil)
	unsubscribe()
	bus.Publish(context.Background(), "x", nil)

	require.Equal(t, 21, calls)
}

func TestBus_PublishAsync(t *testing.T) {
	bus := New()

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		bus.Subscribe("tick", func(context.Context, Event) { wg.Done() })
	}

	bus.Publish(context.Background(), "tick", nil)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handlers did not run")
	}
}
