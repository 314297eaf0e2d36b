package manager

import (
	"context"
	"time"

	"github.com/example/pluginhost/pkg/grpc"
)

// HealthCheck configures MonitorPluginHealth.
type HealthCheck struct {
	Interval    time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	OnUnhealthy func(error)
}

// MonitorPluginHealth checks the plugin server every Interval until ctx is
// done. After MaxRetries consecutive failures OnUnhealthy is called and the
// monitor returns; OnUnhealthy is responsible for monitoring whatever
// replaces the server.
func MonitorPluginHealth(ctx context.Context, client *grpc.Client, config HealthCheck) {
	ticker := time.NewTicker(config.Interval)
	defer ticker.Stop()

	retries := config.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var lastErr error
			for retry := 0; retry < retries; retry++ {
				checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				lastErr = client.Check(checkCtx)
				cancel()
				if lastErr == nil {
					break
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(config.RetryDelay):
				}
			}

			if lastErr != nil && config.OnUnhealthy != nil {
				config.OnUnhealthy(lastErr)
				return
			}
		}
	}
}
