package async_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gonka-ai/dashboard-backend/async"
)

func TestRunEveryTicksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ticks := int32(0)
	async.RunEvery(ctx, 100*time.Millisecond, func(c context.Context) {
		if c.Err() == nil {
			atomic.AddInt32(&ticks, 1)
		}
	})

	// Sleep for a bit and ensure the value has increased.
	time.Sleep(200 * time.Millisecond)

	if atomic.LoadInt32(&ticks) == 0 {
		t.Error("Counter failed to increment with ticker")
	}

	cancel()

	// Sleep for a bit to let the cancel take place.
	time.Sleep(100 * time.Millisecond)

	last := atomic.LoadInt32(&ticks)

	// Sleep for a bit and ensure the value has not increased.
	time.Sleep(200 * time.Millisecond)

	if atomic.LoadInt32(&ticks) != last {
		t.Error("Counter incremented after stop")
	}
}
