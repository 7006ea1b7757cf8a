/*
Package config loads the tether agent configuration from YAML.

Load and Parse start from Default and decode the file on top, so a file only
needs the settings it changes. Each health check without an interval, timeout
or retry count gets the value from health.DefaultConfig. Durations are
written as strings:

	log:
	  level: info
	metrics:
	  addr: 127.0.0.1:9090
	node:
	  role: worker
	  refresh: 30s
	  labels:
	    zone: eu-1
	checks:
	  - name: redis
	    type: tcp
	    target: 127.0.0.1:6379
	    timeout: 2s
	restart:
	  initial: 1s
	  max: 1m

Validate reports every problem in the file at once, joined with errors.Join,
and `tether config validate FILE` prints them. Command-line flags of
`tether agent` override the loaded values.
*/
package config
