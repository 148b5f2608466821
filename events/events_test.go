package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmitDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	received := make(chan VoiceTickersChangedEvent, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	for i := 0; i < 2; i++ {
		bus.Subscribe(EventTypeVoiceTickersChanged, func(ctx context.Context, event Event) {
			defer wg.Done()
			if e, ok := event.(VoiceTickersChangedEvent); ok {
				received <- e
			}
		})
	}

	bus.Emit(context.Background(), VoiceTickersChangedEvent{GuildID: 42})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for event delivery")
	}

	close(received)
	count := 0
	for e := range received {
		assert.Equal(t, int64(42), e.GuildID)
		count++
	}
	assert.Equal(t, 2, count)
}

func TestEmitSkipsUnrelatedEventTypes(t *testing.T) {
	bus := NewBus()

	called := make(chan struct{}, 1)
	bus.Subscribe(EventTypeSettingsChanged, func(ctx context.Context, event Event) {
		called <- struct{}{}
	})

	bus.Emit(context.Background(), VoiceTickersChangedEvent{GuildID: 1})

	select {
	case <-called:
		t.Fatal("Handler received an event of a different type")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEmitRecoversFromPanickingHandler(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(2)

	bus.Subscribe(EventTypeVoiceTickersChanged, func(ctx context.Context, event Event) {
		defer wg.Done()
		panic("handler blew up")
	})

	delivered := false
	bus.Subscribe(EventTypeVoiceTickersChanged, func(ctx context.Context, event Event) {
		defer wg.Done()
		delivered = true
	})

	bus.Emit(context.Background(), VoiceTickersChangedEvent{GuildID: 7})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for handlers")
	}
	assert.True(t, delivered)
}
