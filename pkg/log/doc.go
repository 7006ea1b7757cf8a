/*
Package log provides structured logging for tether using zerolog.

The log package wraps zerolog with a single global logger, configurable level
and output format, and child-logger helpers that attach the fields every tether
component logs with (component, subject, observer_id, worker).

# Configuration

	log.Init(log.Config{
		Level:      log.ParseLevel("debug"),
		JSONOutput: true,
		Output:     os.Stdout,
	})

Until Init is called the global Logger discards everything, so library users
that never configure logging pay nothing for it.

# Context Loggers

  - WithComponent("registry"): component-scoped logs
  - WithSubject("NodeWorker"): an observable's own log stream (debug level
    update/reset/crash/notify lines)
  - WithObserverID(id): an observer's mailbox and watch loop
  - WithWorker("health/api"): agent worker supervision

# Log Levels

Observables log every state change and notification at debug. Removing a dead
subscriber is routine cleanup and is only ever logged at debug. Owner exits and
worker restarts are logged at warn; configuration and startup at info.
*/
package log
