// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package communication

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))
	defer bus.Shutdown()

	sub, err := bus.Subscribe(10)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	bus.Publish(RuntimeEvent{Type: EventTurnStart, SessionID: "s1", Payload: "hello"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	event, err := sub.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventTurnStart, event.Type)
	assert.Equal(t, "s1", event.SessionID)
	assert.Equal(t, "hello", event.Payload)
	assert.False(t, event.Timestamp.IsZero())
}

func TestBusFanOutToMultipleSubscribers(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Shutdown()

	subA, err := bus.Subscribe(10)
	require.NoError(t, err)
	subB, err := bus.Subscribe(10)
	require.NoError(t, err)

	bus.Publish(RuntimeEvent{Type: EventAgentComplete, SessionID: "s1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	eventA, err := subA.Receive(ctx)
	require.NoError(t, err)
	eventB, err := subB.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventAgentComplete, eventA.Type)
	assert.Equal(t, EventAgentComplete, eventB.Type)
}

func TestBusEvictsOldestWhenSubscriberFull(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Shutdown()

	sub, err := bus.Subscribe(2)
	require.NoError(t, err)

	bus.Publish(RuntimeEvent{Type: EventTextDelta, Payload: "1"})
	bus.Publish(RuntimeEvent{Type: EventTextDelta, Payload: "2"})
	bus.Publish(RuntimeEvent{Type: EventTextDelta, Payload: "3"})

	assert.True(t, sub.Lagged(), "subscriber should observe a lagged signal after an eviction")
	assert.False(t, sub.Lagged(), "Lagged should clear after being read")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, err := sub.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", first.Payload, "oldest event (\"1\") should have been evicted")

	second, err := sub.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", second.Payload)

	stats := bus.Stats()
	assert.Equal(t, int64(3), stats.TotalPublished)
	assert.Equal(t, int64(1), stats.TotalDropped)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Shutdown()

	sub, err := bus.Subscribe(4)
	require.NoError(t, err)
	sub.Unsubscribe()

	bus.Publish(RuntimeEvent{Type: EventSessionEnded})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = sub.Receive(ctx)
	assert.Error(t, err, "receiving on an unsubscribed subscription should fail, not hang")
}

func TestBusReceiveRespectsContextCancellation(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Shutdown()

	sub, err := bus.Subscribe(4)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = sub.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBusShutdownClosesAllSubscriptions(t *testing.T) {
	bus := NewBus(nil)

	subA, err := bus.Subscribe(4)
	require.NoError(t, err)
	subB, err := bus.Subscribe(4)
	require.NoError(t, err)

	bus.Shutdown()

	_, err = bus.Subscribe(4)
	assert.Error(t, err, "bus should reject new subscriptions after shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, errA := subA.Receive(ctx)
	_, errB := subB.Receive(ctx)
	assert.Error(t, errA)
	assert.Error(t, errB)
}

func TestBusConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := bus.Subscribe(8)
			if err != nil {
				return
			}
			defer sub.Unsubscribe()
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			_, _ = sub.Receive(ctx)
		}()
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bus.Publish(RuntimeEvent{Type: EventToolCall, SessionID: "concurrent"})
		}(i)
	}
	wg.Wait()
}
