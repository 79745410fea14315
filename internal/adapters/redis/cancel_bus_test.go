package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applyflow/applyflow-api/internal/testutil"
)

func TestCancelBus_PublishAndReceive(t *testing.T) {
	client := testutil.NewTestRedis(t)
	bus := NewCancelBus(client, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, unsubscribe, err := bus.SubscribeCancel(ctx)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, bus.PublishCancel(ctx, "app-123"))

	select {
	case got := <-ch:
		assert.Equal(t, "app-123", got)
	case <-ctx.Done():
		t.Fatal("timed out waiting for cancel signal")
	}
}

func TestCancelBus_PublishValidation(t *testing.T) {
	client := testutil.NewTestRedis(t)
	bus := NewCancelBus(client, nil)

	err := bus.PublishCancel(context.Background(), "  ")
	require.Error(t, err)
}

func TestCancelBus_UnsubscribeClosesChannel(t *testing.T) {
	client := testutil.NewTestRedis(t)
	bus := NewCancelBus(client, nil)

	ctx := context.Background()
	ch, unsubscribe, err := bus.SubscribeCancel(ctx)
	require.NoError(t, err)

	unsubscribe()
	// Idempotent.
	unsubscribe()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestCancelBus_UnsubscribeConcurrent(t *testing.T) {
	client := testutil.NewTestRedis(t)
	bus := NewCancelBus(client, nil)

	ch, unsubscribe, err := bus.SubscribeCancel(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsubscribe()
		}()
	}
	wg.Wait()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}
