package worker

import (
	"context"

	"github.com/fleetops/workorder-service/internal/service"
)

// Start registers notification handlers and runs the SLA monitor until ctx is cancelled.
// The returned channel is closed once the monitor has stopped.
func Start(ctx context.Context, notificationService *service.NotificationService, monitor *SLAMonitor) <-chan struct{} {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	done := make(chan struct{})
	if monitor == nil {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		monitor.Run(ctx)
	}()
	return done
}
