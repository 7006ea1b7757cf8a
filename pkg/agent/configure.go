package agent

import (
	"context"

	"github.com/cuemby/tether/pkg/config"
	"github.com/cuemby/tether/pkg/health"
	"github.com/cuemby/tether/pkg/metrics"
	"github.com/cuemby/tether/pkg/types"
	"github.com/rs/zerolog"
)

// Handles gives access to the observables of a configured agent
type Handles struct {
	Node   *Handle[*types.NodeInfo]
	Checks []*Handle[health.Status]
}

// Configure adds the node worker, one health worker per configured check and
// a reporter for each of them. The node worker is the critical component for
// readiness.
func Configure(a *Agent, cfg *config.Config, version string) (*Handles, error) {
	node, err := Supervise[*types.NodeInfo](a, NewNodeWorker(cfg.Node, version))
	if err != nil {
		return nil, err
	}
	if err := a.Go("report/node", func(ctx context.Context) error {
		return Report(ctx, node, reportNode())
	}); err != nil {
		return nil, err
	}

	handles := &Handles{Node: node}
	for _, check := range cfg.Checks {
		h, err := Supervise[health.Status](a, NewHealthWorker(check))
		if err != nil {
			return nil, err
		}
		if err := a.Go("report/"+h.Name(), func(ctx context.Context) error {
			return Report(ctx, h, reportHealth())
		}); err != nil {
			return nil, err
		}
		handles.Checks = append(handles.Checks, h)
	}

	metrics.SetCriticalComponents(node.Name())
	return handles, nil
}

func reportNode() func(zerolog.Logger, *types.NodeInfo) {
	var last *types.NodeInfo
	return func(logger zerolog.Logger, info *types.NodeInfo) {
		if last == nil || last.StartedAt != info.StartedAt {
			logger.Info().
				Str("node_id", info.ID).
				Str("node", info.Name).
				Str("hostname", info.Hostname).
				Str("role", string(info.Role)).
				Int("cpu_cores", info.Resources.CPUCores).
				Msg("node published")
		} else {
			logger.Debug().Time("heartbeat", info.Heartbeat).Msg("heartbeat")
		}
		last = info
	}
}

func reportHealth() func(zerolog.Logger, health.Status) {
	first := true
	var healthy bool
	return func(logger zerolog.Logger, status health.Status) {
		event := logger.Debug()
		if first || status.Healthy != healthy {
			event = logger.Info()
			if !status.Healthy {
				event = logger.Warn()
			}
		}
		event.
			Bool("healthy", status.Healthy).
			Int("failures", status.ConsecutiveFailures).
			Str("message", status.LastResult.Message).
			Dur("took", status.LastResult.Duration).
			Msg("health status")
		first = false
		healthy = status.Healthy
	}
}
