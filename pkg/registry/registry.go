package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/tether/pkg/events"
	"github.com/cuemby/tether/pkg/log"
	"github.com/cuemby/tether/pkg/metrics"
	"github.com/cuemby/tether/pkg/observable"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by Register after Close
var ErrClosed = errors.New("registry closed")

// Crasher is the part of an observable the registry needs. Every
// *observable.Observable[T] satisfies it.
type Crasher interface {
	Subject() string
	Crash(reason error) error
	IsCrashed() bool
}

// EntryInfo describes a registered observable
type EntryInfo struct {
	ID           string
	Subject      string
	Owner        string
	RegisteredAt time.Time
	Crashed      bool
}

type entry struct {
	id           string
	obs          Crasher
	owner        *Owner
	registeredAt time.Time
	detach       chan struct{}
}

// Registry binds observables to the lifetime of their owners. When an owner
// exits, the registry crashes every observable registered to it with an
// *OwnerExitError, so subscribers learn that no further updates are coming
// instead of waiting forever.
type Registry struct {
	logger zerolog.Logger
	broker *events.Broker

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Registry
type Option func(*Registry)

// WithBroker publishes lifecycle events to broker
func WithBroker(broker *events.Broker) Option {
	return func(r *Registry) {
		r.broker = broker
	}
}

// WithLogger overrides the registry logger
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:  log.WithComponent("registry"),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds obs to owner and returns the registration ID. If the owner
// has already exited, obs is crashed right away.
func (r *Registry) Register(obs Crasher, owner *Owner) (string, error) {
	if obs == nil || owner == nil {
		return "", fmt.Errorf("%w: register needs an observable and an owner", observable.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", ErrClosed
	}

	e := &entry{
		id:           uuid.New().String(),
		obs:          obs,
		owner:        owner,
		registeredAt: time.Now(),
		detach:       make(chan struct{}),
	}
	r.entries[e.id] = e
	metrics.RegistryObservables.Inc()

	r.logger.Debug().
		Str("subject", obs.Subject()).
		Str("owner", owner.Name()).
		Str("registration", e.id).
		Msg("registered")
	r.publish(events.EventObservableRegistered, obs.Subject(), "owned by "+owner.Name(), owner.Name())

	r.wg.Add(1)
	go r.watch(e)

	return e.id, nil
}

// Unregister detaches a registration without crashing its observable
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	r.remove(e)
	close(e.detach)
	return true
}

// Len returns the number of live registrations
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// List returns the live registrations sorted by subject
func (r *Registry) List() []EntryInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EntryInfo, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, EntryInfo{
			ID:           e.id,
			Subject:      e.obs.Subject(),
			Owner:        e.owner.Name(),
			RegisteredAt: e.registeredAt,
			Crashed:      e.obs.IsCrashed(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Close detaches the registrations of live owners without crashing and waits
// for the watchers to exit. Observables of owners that already exited are
// still crashed. Later Register calls fail with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		for _, e := range r.entries {
			select {
			case <-e.owner.Done():
				continue
			default:
			}
			r.remove(e)
			close(e.detach)
		}
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Registry) watch(e *entry) {
	defer r.wg.Done()

	select {
	case <-e.owner.Done():
	case <-e.detach:
		return
	}

	r.mu.Lock()
	if _, ok := r.entries[e.id]; !ok {
		// detached concurrently
		r.mu.Unlock()
		return
	}
	r.remove(e)
	r.mu.Unlock()

	r.ownerExited(e)
}

func (r *Registry) ownerExited(e *entry) {
	subject := e.obs.Subject()
	owner := e.owner.Name()
	cause := e.owner.Cause()
	if errors.Is(cause, context.Canceled) {
		cause = ErrOwnerStopped
	}

	logger := r.logger.With().Str("subject", subject).Str("owner", owner).Logger()
	if errors.Is(cause, ErrOwnerStopped) {
		logger.Debug().Msg("owner stopped")
	} else {
		logger.Warn().Err(cause).Msg("owner failed")
	}
	r.publish(events.EventOwnerExited, subject, cause.Error(), owner)

	reason := &OwnerExitError{Owner: owner, Cause: cause}
	if err := e.obs.Crash(reason); err != nil {
		if !errors.Is(err, observable.ErrAlreadyCrashed) {
			logger.Error().Err(err).Msg("failed to crash observable")
			return
		}
		logger.Debug().Msg("observable already crashed, detached")
		r.publish(events.EventObservableDetached, subject, "already crashed", owner)
		return
	}

	metrics.RegistryCrashes.Inc()
	metrics.UpdateComponent(subject, false, reason.Error())
	r.publish(events.EventObservableCrashed, subject, reason.Error(), owner)
}

// remove drops e from the table. Caller holds r.mu.
func (r *Registry) remove(e *entry) {
	delete(r.entries, e.id)
	metrics.RegistryObservables.Dec()
}

func (r *Registry) publish(eventType events.EventType, subject, message, owner string) {
	if r.broker == nil {
		return
	}
	event := events.NewEvent(eventType, subject, message)
	event.Metadata = map[string]string{"owner": owner}
	r.broker.Publish(event)
}
