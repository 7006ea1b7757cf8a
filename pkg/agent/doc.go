/*
Package agent runs the publishers of a node and keeps them running.

A Publisher owns one observable per run. The Agent gives each run a fresh
observable and a registry owner derived from the agent context. A run that
returns or panics before the agent stops has failed: the registry crashes
that run's observable and the agent starts a new run after an exponential
backoff. Subscribers of the crashed generation get the crash
error and use the Handle to pick up the next one.

	a := agent.New(agent.WithRestart(time.Second, time.Minute))
	node, err := agent.Supervise[*types.NodeInfo](a, agent.NewNodeWorker(cfg.Node, version))
	if err != nil {
		return err
	}
	go a.Run(ctx)

	obs, err := node.Next(ctx, nil)
	info, err := observer.Get(ctx, obs)

Two publishers come with the package. NodeWorker publishes *types.NodeInfo
and refreshes its heartbeat. HealthWorker runs a health.Checker and
publishes each health.Status.

Report follows a handle across restarts and hands every value to a logging
callback; Configure wires both workers and their reporters from a
config.Config.
*/
package agent
