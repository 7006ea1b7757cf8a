/*
Package metrics provides Prometheus metrics and health endpoints for tether.

All collectors are package-level variables registered with the default
Prometheus registry in init, so any tether package can update them without
setup. The package also keeps a small component-health table that backs the
/health, /ready and /live endpoints.

# Metrics Catalog

Observable:
  - tether_observable_updates_total{op}: update, reset and crash operations
  - tether_observable_deliveries_total: notification messages handed to subscribers
  - tether_observable_subscribers_pruned_total: dead subscribers removed on broadcast
  - tether_observable_broadcast_duration_seconds: lock hold time per broadcast

Observer:
  - tether_observer_mailbox_depth{observer}: undelivered messages per observer

Registry:
  - tether_registry_observables: observables bound to a live owner
  - tether_registry_crashes_total: observables crashed by an owner exit

Agent:
  - tether_agent_worker_restarts_total{worker}
  - tether_agent_health_check_duration_seconds{check}

# Broadcast cost

A broadcast walks every subscriber while holding the observable lock. The
broadcast histogram is the place to watch when an observable gains many
subscribers: delivery itself is a non-blocking mailbox append, so the lock hold
time grows linearly with subscriber count and nothing else.

# Health

	metrics.SetCriticalComponents("node")
	metrics.UpdateComponent("node", true, "published")
	http.ListenAndServe(":9090", metrics.NewServeMux())

The registry marks an observable's subject unhealthy when it crashes, and the
agent marks it healthy again once a restarted worker publishes.
*/
package metrics
