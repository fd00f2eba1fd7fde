package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartMaintenanceWorker runs the repair job on a ticker until ctx is
// cancelled. The first run happens one interval after start.
func StartMaintenanceWorker(ctx context.Context, maintenance *service.MaintenanceService, interval time.Duration, logger *zap.Logger) {
	if maintenance == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		logger.Info("maintenance worker started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("maintenance worker stopped")
				return
			case <-ticker.C:
				maintenance.Run(ctx)
			}
		}
	}()
}
