// Package bootstrap retries startup dependencies that may not be reachable
// yet, such as a database or search server starting alongside the service.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avast/retry-go"

	"insight_sync/internal/config"
)

// Retry runs fn until it succeeds, backing off exponentially between
// attempts up to cfg.MaxDelay.
func Retry(ctx context.Context, name string, cfg config.BootstrapConfig, logger *slog.Logger, fn func(ctx context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	err := retry.Do(
		func() error {
			return fn(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(cfg.InitialDelay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("startup dependency not ready, retrying",
				"dependency", name,
				"attempt", n+1,
				"max_attempts", attempts,
				"error", err,
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Info("startup dependency ready", "dependency", name)
	return nil
}
