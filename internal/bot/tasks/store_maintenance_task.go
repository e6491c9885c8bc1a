package tasks

import (
	"context"
	"fmt"
	"time"
)

// maintenanceTimeout bounds a single maintenance run. VACUUM on a large
// SQLite file can take a while.
const maintenanceTimeout = 10 * time.Minute

// newStoreMaintenanceTask creates the scheduled task function for running snapshot store maintenance.
func newStoreMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "store_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled store maintenance task...")
		startTime := time.Now()

		runCtx, cancel := context.WithTimeout(ctx, maintenanceTimeout)
		defer cancel()
		err := deps.Store.RunMaintenance(runCtx)

		duration := time.Since(startTime)
		if err != nil {
			log.ErrorContext(ctx, "Store maintenance task failed", "error", err, "duration", duration)
			return fmt.Errorf("store maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Scheduled store maintenance task completed successfully", "duration", duration)
		return nil
	}
}
