/*
Package types defines the value types tether agents publish through
observables.

NodeInfo describes the node an agent runs on: identity, role, labels, capacity
and the time of the last heartbeat. Published values are shared with every
subscriber, so they are treated as immutable: WithHeartbeat returns a deep copy
rather than touching the published value.
*/
package types
