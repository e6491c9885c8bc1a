package tasks

import (
	"context"
	"fmt"
	"time"
)

// newStoreHealthcheckTask pings the snapshot store so connectivity loss shows
// up in the logs before the next message fails to persist.
func newStoreHealthcheckTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "store_healthcheck")

	return func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, deps.Config.Timeouts.Store)
		defer cancel()

		startTime := time.Now()
		if err := deps.Store.Ping(pingCtx); err != nil {
			log.WarnContext(ctx, "Snapshot store is unreachable", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("store ping failed: %w", err)
		}

		log.DebugContext(ctx, "Snapshot store is reachable", "duration", time.Since(startTime))
		return nil
	}
}
