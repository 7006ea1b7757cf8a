package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cuemby/tether/pkg/events"
	"github.com/cuemby/tether/pkg/log"
	"github.com/cuemby/tether/pkg/metrics"
	"github.com/cuemby/tether/pkg/observable"
	"github.com/cuemby/tether/pkg/registry"
	"github.com/rs/zerolog"
)

var (
	// ErrRunning is returned when the agent is changed or started while running
	ErrRunning = errors.New("agent already running")

	// ErrWorkerExited is the failure recorded when a publisher returns before
	// the agent is stopped
	ErrWorkerExited = errors.New("worker exited")
)

// Publisher is a long-running component that owns one observable per run.
// Run publishes into obs until ctx is done. Returning, with or without an
// error, ends the run; the agent crashes obs and restarts the publisher with
// a fresh observable.
type Publisher[T any] interface {
	Name() string
	Run(ctx context.Context, obs *observable.Observable[T]) error
}

// Agent supervises publishers. Each run gets its own registry owner, so a
// failed run crashes exactly the observable it owned.
type Agent struct {
	logger   zerolog.Logger
	registry *registry.Registry
	broker   *events.Broker

	restartInitial time.Duration
	restartMax     time.Duration

	mu      sync.Mutex
	tasks   []task
	running bool
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

// Option configures an Agent
type Option func(*Agent)

// WithRestart sets the exponential backoff bounds between restarts
func WithRestart(initial, max time.Duration) Option {
	return func(a *Agent) {
		a.restartInitial = initial
		a.restartMax = max
	}
}

// WithLogger overrides the agent logger
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// New creates an agent with its own registry and event broker
func New(opts ...Option) *Agent {
	broker := events.NewBroker()
	a := &Agent{
		logger:         log.WithComponent("agent"),
		broker:         broker,
		registry:       registry.New(registry.WithBroker(broker)),
		restartInitial: time.Second,
		restartMax:     time.Minute,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry returns the registry binding run observables to their owners
func (a *Agent) Registry() *registry.Registry {
	return a.registry
}

// Broker returns the lifecycle event broker
func (a *Agent) Broker() *events.Broker {
	return a.broker
}

// Go adds a task that runs alongside the publishers for the life of Run.
// Its error is logged; it is not restarted.
func (a *Agent) Go(name string, fn func(ctx context.Context) error) error {
	return a.add(task{name: name, run: func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && ctx.Err() == nil {
			a.logger.Error().Err(err).Str("task", name).Msg("task failed")
		}
		return err
	}})
}

func (a *Agent) add(t task) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("%w: cannot add %s", ErrRunning, t.name)
	}
	a.tasks = append(a.tasks, t)
	return nil
}

// Supervise adds p to the agent and returns the handle tracking its
// observables. Publishers must be added before Run.
func Supervise[T any](a *Agent, p Publisher[T]) (*Handle[T], error) {
	h := newHandle[T](p.Name())
	s := &supervisor[T]{agent: a, publisher: p, handle: h, logger: log.WithWorker(p.Name())}
	if err := a.add(task{name: p.Name(), run: s.run}); err != nil {
		return nil, err
	}
	return h, nil
}

// Run starts every publisher and task and blocks until ctx is done. On
// return every run owner has stopped, so each observable the agent created
// is crashed.
func (a *Agent) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrRunning
	}
	a.running = true
	tasks := a.tasks
	a.mu.Unlock()

	a.broker.Start()
	defer a.broker.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := a.broker.Subscribe()
	defer a.broker.Unsubscribe(sub)
	go a.logEvents(ctx, sub)

	a.logger.Info().Int("tasks", len(tasks)).Msg("Agent started")

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			_ = t.run(ctx)
		}(t)
	}

	<-ctx.Done()
	wg.Wait()
	a.registry.Close()

	a.logger.Info().Msg("Agent stopped")
	return nil
}

func (a *Agent) logEvents(ctx context.Context, ch events.Subscriber) {
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			a.logger.Debug().
				Str("event", string(event.Type)).
				Str("subject", event.Subject).
				Str("message", event.Message).
				Msg("event")
		case <-ctx.Done():
			return
		}
	}
}

func (a *Agent) publish(eventType events.EventType, subject, message string, generation uint64) {
	event := events.NewEvent(eventType, subject, message)
	event.Metadata = map[string]string{"generation": fmt.Sprint(generation)}
	a.broker.Publish(event)
}

type supervisor[T any] struct {
	agent     *Agent
	publisher Publisher[T]
	handle    *Handle[T]
	logger    zerolog.Logger
}

// run restarts the publisher with backoff until ctx is done
func (s *supervisor[T]) run(ctx context.Context) error {
	name := s.publisher.Name()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.agent.restartInitial
	b.MaxInterval = s.agent.restartMax
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		obs := observable.New[T](name)
		owner := registry.NewOwner(ctx, name)
		if _, err := s.agent.registry.Register(obs, owner); err != nil {
			owner.Stop()
			return err
		}

		generation := s.handle.set(obs)
		if generation == 1 {
			s.agent.publish(events.EventWorkerStarted, name, "started", generation)
		} else {
			metrics.WorkerRestarts.WithLabelValues(name).Inc()
			s.agent.publish(events.EventWorkerRestarted, name, "restarted", generation)
		}
		metrics.UpdateComponent(name, true, "running")
		s.logger.Debug().Uint64("generation", generation).Msg("run started")

		started := time.Now()
		err := s.runOnce(owner.Context(), obs)

		if ctx.Err() != nil {
			owner.Stop()
			s.logger.Debug().Uint64("generation", generation).Msg("run stopped")
			return nil
		}

		if err == nil {
			err = ErrWorkerExited
		}
		owner.Fail(err)
		s.agent.publish(events.EventWorkerFailed, name, err.Error(), generation)

		if time.Since(started) > s.agent.restartMax {
			b.Reset()
		}
		wait := b.NextBackOff()
		s.logger.Warn().Err(err).Uint64("generation", generation).Dur("restart_in", wait).Msg("run failed")

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

func (s *supervisor[T]) runOnce(ctx context.Context, obs *observable.Observable[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.publisher.Run(ctx, obs)
}
