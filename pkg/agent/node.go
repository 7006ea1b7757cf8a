package agent

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/cuemby/tether/pkg/config"
	"github.com/cuemby/tether/pkg/observable"
	"github.com/cuemby/tether/pkg/types"
	"github.com/google/uuid"
)

// NodeWorker publishes the description of the local node and refreshes its
// heartbeat every Refresh interval while anyone is subscribed.
type NodeWorker struct {
	id      string
	name    string
	role    types.NodeRole
	labels  map[string]string
	refresh time.Duration
	version string

	hostname func() (string, error)
}

// NewNodeWorker creates a node worker. The node ID is taken from cfg or
// generated once, so it survives restarts.
func NewNodeWorker(cfg config.NodeConfig, version string) *NodeWorker {
	id := cfg.ID
	if id == "" {
		id = uuid.New().String()
	}
	return &NodeWorker{
		id:       id,
		name:     cfg.Name,
		role:     cfg.Role,
		labels:   cfg.Labels,
		refresh:  cfg.Refresh,
		version:  version,
		hostname: os.Hostname,
	}
}

// Name returns "node"
func (w *NodeWorker) Name() string {
	return "node"
}

// Run publishes the node info, then a fresh heartbeat every refresh interval.
// Ticks with no subscribers are skipped.
func (w *NodeWorker) Run(ctx context.Context, obs *observable.Observable[*types.NodeInfo]) error {
	info, err := w.describe()
	if err != nil {
		return err
	}
	if err := obs.Update(info); err != nil {
		return err
	}

	ticker := time.NewTicker(w.refresh)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if !obs.HasSubscribers() {
				continue
			}
			info = info.WithHeartbeat(now)
			if err := obs.Update(info); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *NodeWorker) describe() (*types.NodeInfo, error) {
	hostname, err := w.hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to get hostname: %w", err)
	}

	name := w.name
	if name == "" {
		name = hostname
	}

	labels := make(map[string]string, len(w.labels))
	for k, v := range w.labels {
		labels[k] = v
	}

	now := time.Now()
	return &types.NodeInfo{
		ID:       w.id,
		Name:     name,
		Hostname: hostname,
		Role:     w.role,
		Labels:   labels,
		Resources: &types.NodeResources{
			CPUCores: runtime.NumCPU(),
		},
		Status:    types.NodeStatusReady,
		Version:   w.version,
		StartedAt: now,
		Heartbeat: now,
	}, nil
}
