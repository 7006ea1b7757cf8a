package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/tether/pkg/events"
	"github.com/cuemby/tether/pkg/observable"
	"github.com/cuemby/tether/pkg/observer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = time.Second

func crashed(obs Crasher) func() bool {
	return func() bool { return obs.IsCrashed() }
}

func TestOwnerCauses(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := NewOwner(parent, "stopped")
	assert.NoError(t, stopped.Cause())
	stopped.Stop()
	assert.ErrorIs(t, stopped.Cause(), ErrOwnerStopped)

	failed := NewOwner(parent, "failed")
	boom := errors.New("boom")
	failed.Fail(boom)
	failed.Fail(errors.New("ignored"))
	assert.Equal(t, boom, failed.Cause())

	child := NewOwner(parent, "child")
	cancel()
	<-child.Done()
	assert.ErrorIs(t, child.Cause(), context.Canceled)
	assert.Equal(t, "child", child.Name())
}

func TestOwnerFailureCrashesObservable(t *testing.T) {
	reg := New()
	defer reg.Close()

	obs := observable.New[string]("NodeWorker")
	require.NoError(t, obs.Update("node-1"))

	o := observer.New[string]("test")
	defer o.Close()
	_, _, err := obs.Subscribe(o, true)
	require.NoError(t, err)

	owner := NewOwner(context.Background(), "node-worker")
	id, err := reg.Register(obs, owner)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, reg.Len())

	boom := errors.New("docker socket gone")
	owner.Fail(boom)

	require.Eventually(t, crashed(obs), waitFor, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return reg.Len() == 0 }, waitFor, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	msg, err := o.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, observable.StateCrashed, msg.State())

	var exitErr *OwnerExitError
	require.ErrorAs(t, msg.Err(), &exitErr)
	assert.Equal(t, "node-worker", exitErr.Owner)
	assert.ErrorIs(t, msg.Err(), boom)
	assert.ErrorIs(t, msg.Err(), observable.ErrCrashed)
	assert.EqualError(t, exitErr, "owner node-worker exited: docker socket gone")
}

func TestOwnerStopCrashesObservable(t *testing.T) {
	reg := New()
	defer reg.Close()

	obs := observable.New[int]("stats")
	owner := NewOwner(context.Background(), "stats-worker")
	_, err := reg.Register(obs, owner)
	require.NoError(t, err)

	owner.Stop()

	require.Eventually(t, crashed(obs), waitFor, 5*time.Millisecond)
	assert.ErrorIs(t, obs.Err(), ErrOwnerStopped)
}

func TestParentCancelIsStop(t *testing.T) {
	reg := New()
	defer reg.Close()

	parent, cancel := context.WithCancel(context.Background())
	obs := observable.New[int]("stats")
	_, err := reg.Register(obs, NewOwner(parent, "stats-worker"))
	require.NoError(t, err)

	cancel()

	require.Eventually(t, crashed(obs), waitFor, 5*time.Millisecond)
	assert.ErrorIs(t, obs.Err(), ErrOwnerStopped)
}

func TestAlreadyCrashedIsDetached(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	reg := New(WithBroker(broker))
	defer reg.Close()

	obs := observable.New[int]("stats")
	owner := NewOwner(context.Background(), "stats-worker")
	_, err := reg.Register(obs, owner)
	require.NoError(t, err)

	own := errors.New("own crash")
	require.NoError(t, obs.Crash(own))
	owner.Fail(errors.New("later"))

	var types []events.EventType
	for len(types) < 3 {
		select {
		case event := <-sub:
			assert.Equal(t, "stats", event.Subject)
			assert.Equal(t, "stats-worker", event.Metadata["owner"])
			types = append(types, event.Type)
		case <-time.After(waitFor):
			t.Fatalf("missing events, got %v", types)
		}
	}
	assert.Equal(t, []events.EventType{
		events.EventObservableRegistered,
		events.EventOwnerExited,
		events.EventObservableDetached,
	}, types)
	assert.ErrorIs(t, obs.Err(), own)
}

func TestUnregisterDoesNotCrash(t *testing.T) {
	reg := New()
	defer reg.Close()

	obs := observable.New[int]("stats")
	owner := NewOwner(context.Background(), "stats-worker")
	id, err := reg.Register(obs, owner)
	require.NoError(t, err)

	assert.True(t, reg.Unregister(id))
	assert.False(t, reg.Unregister(id))

	owner.Fail(errors.New("boom"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, obs.IsCrashed())
}

func TestCloseDetachesAll(t *testing.T) {
	reg := New()

	owner := NewOwner(context.Background(), "worker")
	a := observable.New[int]("a")
	b := observable.New[int]("b")
	_, err := reg.Register(a, owner)
	require.NoError(t, err)
	_, err = reg.Register(b, owner)
	require.NoError(t, err)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Subject)
	assert.Equal(t, "b", list[1].Subject)
	assert.Equal(t, "worker", list[0].Owner)
	assert.False(t, list[0].Crashed)

	reg.Close()
	reg.Close()
	assert.Zero(t, reg.Len())

	owner.Fail(errors.New("boom"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, a.IsCrashed())
	assert.False(t, b.IsCrashed())

	_, err = reg.Register(observable.New[int]("c"), owner)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRegisterExitedOwner(t *testing.T) {
	reg := New()
	defer reg.Close()

	owner := NewOwner(context.Background(), "gone")
	owner.Fail(errors.New("boom"))

	obs := observable.New[int]("late")
	_, err := reg.Register(obs, owner)
	require.NoError(t, err)

	require.Eventually(t, crashed(obs), waitFor, 5*time.Millisecond)
}

func TestRegisterInvalid(t *testing.T) {
	reg := New()
	defer reg.Close()

	_, err := reg.Register(nil, NewOwner(context.Background(), "x"))
	assert.ErrorIs(t, err, observable.ErrInvalidArgument)

	_, err = reg.Register(observable.New[int]("x"), nil)
	assert.ErrorIs(t, err, observable.ErrInvalidArgument)
}

func TestCloseCrashesExitedOwners(t *testing.T) {
	reg := New()

	owner := NewOwner(context.Background(), "worker")
	obs := observable.New[int]("stats")
	_, err := reg.Register(obs, owner)
	require.NoError(t, err)

	owner.Stop()
	reg.Close()

	assert.True(t, obs.IsCrashed())
	assert.ErrorIs(t, obs.Err(), ErrOwnerStopped)
}
