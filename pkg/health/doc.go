/*
Package health provides the probes behind the agent's health workers.

Three checkers implement Checker:

  - HTTPChecker: healthy when a request returns a status in range (200-399 by default)
  - TCPChecker: healthy when a TCP connection can be opened
  - ExecChecker: healthy when a command exits 0

A Status folds results into a health verdict. A single failure does not flip
it; Config.Retries consecutive failures do, and one success flips it back.
Status is a value type: Update returns a new copy, which is what the health
worker publishes to its observable.

	checker, err := health.NewChecker(health.CheckTypeTCP, "127.0.0.1:6379", nil, 2*time.Second)
	if err != nil {
		return err
	}
	status := health.NewStatus("redis", checker.Type())
	status = status.Update(checker.Check(ctx), cfg)

During Config.StartPeriod the worker does not publish a verdict at all, so
subscribers see the observable as unset rather than unhealthy.
*/
package health
