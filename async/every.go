// Package async provides the periodic-execution helper the refresh scheduler
// uses to keep cached chain data current.
package async

import (
	"context"
	"reflect"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

// RunEvery invokes f with the loop context once per period until that context
// is cancelled. The loop runs in its own goroutine and the first tick fires
// after one full period, so callers wanting an immediate run invoke f
// themselves before handing it off.
func RunEvery(ctx context.Context, period time.Duration, f func(context.Context)) {
	funcName := runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()
	ticker := time.NewTicker(period)
	go func() {
		for {
			select {
			case <-ticker.C:
				log.WithField("function", funcName).Trace("Running periodic task")
				f(ctx)
			case <-ctx.Done():
				log.WithField("function", funcName).Debug("Context closed, stopping periodic task")
				ticker.Stop()
				return
			}
		}
	}()
}
