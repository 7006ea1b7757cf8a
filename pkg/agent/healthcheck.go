package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/tether/pkg/config"
	"github.com/cuemby/tether/pkg/health"
	"github.com/cuemby/tether/pkg/metrics"
	"github.com/cuemby/tether/pkg/observable"
)

// HealthWorker runs one health check every interval and publishes the
// resulting health.Status. While the check is in its start period, failures
// reset the observable instead of counting against the check.
type HealthWorker struct {
	check  config.CheckConfig
	config health.Config
}

// NewHealthWorker creates a health worker for check
func NewHealthWorker(check config.CheckConfig) *HealthWorker {
	return &HealthWorker{
		check:  check,
		config: check.HealthConfig(),
	}
}

// Name returns "health/<check name>"
func (w *HealthWorker) Name() string {
	return "health/" + w.check.Name
}

// Run checks until ctx is done. A checker that cannot be built fails the run.
func (w *HealthWorker) Run(ctx context.Context, obs *observable.Observable[health.Status]) error {
	checker, err := health.NewChecker(w.check.Type, w.check.Target, w.check.Command, w.config.Timeout)
	if err != nil {
		return fmt.Errorf("health check %s: %w", w.check.Name, err)
	}

	status := health.NewStatus(w.check.Name, checker.Type())

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		status, err = w.runCheck(ctx, checker, status, obs)
		if err != nil {
			return err
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *HealthWorker) runCheck(ctx context.Context, checker health.Checker, status health.Status, obs *observable.Observable[health.Status]) (health.Status, error) {
	checkCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	timer := metrics.NewTimer()
	result := checker.Check(checkCtx)
	timer.ObserveDurationVec(metrics.HealthCheckDuration, w.check.Name)

	if ctx.Err() != nil {
		return status, nil
	}

	if !result.Healthy && status.InStartPeriod(w.config, time.Now()) {
		return status, obs.Reset()
	}

	status = status.Update(result, w.config)
	metrics.UpdateComponent(w.Name(), status.Healthy, result.Message)
	return status, obs.Update(status)
}
