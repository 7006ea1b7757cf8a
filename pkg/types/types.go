package types

import (
	"time"
)

// NodeInfo is the node description an agent publishes for other components
// to observe. Values are published by pointer and never modified afterwards;
// build a new NodeInfo for every update.
type NodeInfo struct {
	ID        string
	Name      string
	Hostname  string
	Role      NodeRole
	Labels    map[string]string
	Resources *NodeResources
	Status    NodeStatus
	Version   string
	StartedAt time.Time
	Heartbeat time.Time
}

// NodeRole defines the role of a node
type NodeRole string

const (
	NodeRoleManager NodeRole = "manager"
	NodeRoleWorker  NodeRole = "worker"
)

// NodeStatus represents the current state of a node
type NodeStatus string

const (
	NodeStatusReady    NodeStatus = "ready"
	NodeStatusDown     NodeStatus = "down"
	NodeStatusDraining NodeStatus = "draining"
	NodeStatusUnknown  NodeStatus = "unknown"
)

// NodeResources tracks resource capacity of a node
type NodeResources struct {
	CPUCores    int
	MemoryBytes int64
}

// Label returns the value of a node label
func (n *NodeInfo) Label(key string) (string, bool) {
	if n == nil || n.Labels == nil {
		return "", false
	}
	v, ok := n.Labels[key]
	return v, ok
}

// WithHeartbeat returns a copy of n with a new heartbeat time. Labels and
// resources are copied too, so the result shares nothing with n.
func (n *NodeInfo) WithHeartbeat(t time.Time) *NodeInfo {
	out := *n
	out.Heartbeat = t
	if n.Labels != nil {
		out.Labels = make(map[string]string, len(n.Labels))
		for k, v := range n.Labels {
			out.Labels[k] = v
		}
	}
	if n.Resources != nil {
		res := *n.Resources
		out.Resources = &res
	}
	return &out
}
