package backend

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeControl struct {
	starts int32
	stops  int32
}

func (f *fakeControl) Start() error {
	atomic.AddInt32(&f.starts, 1)
	return nil
}

func (f *fakeControl) Stop() error {
	atomic.AddInt32(&f.stops, 1)
	return nil
}

func TestRequestStartIsIdempotent(t *testing.T) {
	fc := &fakeControl{}
	players := int32(0)
	c := New(fc, func() int { return int(atomic.LoadInt32(&players)) }, 1, 1)

	c.RequestStart()
	c.RequestStart()
	c.RequestStart()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fc.starts))
	assert.Equal(t, Starting, c.Status())
}

func TestStartupTransitionsToOnline(t *testing.T) {
	fc := &fakeControl{}
	players := int32(0)
	c := New(fc, func() int { return int(atomic.LoadInt32(&players)) }, 1, 1)

	c.RequestStart()
	require.Eventually(t, func() bool { return c.Status() == Online }, 3*time.Second, 10*time.Millisecond)
}

func TestShutdownCheckNeverStopsWithPlayersPresent(t *testing.T) {
	fc := &fakeControl{}
	players := int32(1)
	c := New(fc, func() int { return int(atomic.LoadInt32(&players)) }, 1, 1)

	c.RequestStart()
	require.Eventually(t, func() bool { return c.Status() == Online }, 3*time.Second, 10*time.Millisecond)

	c.NotifyPlayerLeft(1) // log-only count mismatch is fine; players() is what gates the check
	time.Sleep(1500 * time.Millisecond)

	assert.Equal(t, Online, c.Status())
	assert.Equal(t, int32(0), atomic.LoadInt32(&fc.stops))
}

func TestShutdownCheckStopsOnceIdle(t *testing.T) {
	fc := &fakeControl{}
	players := int32(0)
	c := New(fc, func() int { return int(atomic.LoadInt32(&players)) }, 1, 1)

	c.RequestStart()
	require.Eventually(t, func() bool { return c.Status() == Online }, 3*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return c.Status() == Offline }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fc.stops))
}

func TestOverlappingShutdownChecksOnlyLastActs(t *testing.T) {
	fc := &fakeControl{}
	players := int32(0)
	c := New(fc, func() int { return int(atomic.LoadInt32(&players)) }, 1, 1)

	c.RequestStart()
	require.Eventually(t, func() bool { return c.Status() == Online }, 3*time.Second, 10*time.Millisecond)

	// simulate a burst of joins/leaves, each arming a new check; only the
	// last-armed check's decrement should reach zero and act.
	c.NotifyPlayerLeft(0)
	c.NotifyPlayerLeft(0)
	c.NotifyPlayerLeft(0)

	require.Eventually(t, func() bool { return c.Status() == Offline }, 4*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fc.stops))
}

func TestForceStopAlwaysActs(t *testing.T) {
	fc := &fakeControl{}
	players := int32(3)
	c := New(fc, func() int { return int(atomic.LoadInt32(&players)) }, 1, 1)

	c.RequestStart()
	require.Eventually(t, func() bool { return c.Status() == Online }, 3*time.Second, 10*time.Millisecond)

	c.ForceStop()
	assert.Equal(t, Offline, c.Status())
	assert.Equal(t, int32(1), atomic.LoadInt32(&fc.stops))
}
