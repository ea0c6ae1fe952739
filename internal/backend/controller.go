// Package backend implements C2, the backend controller: the lifecycle
// state machine coordinating the Minecraft server process with connection
// admission (spec.md §4.1).
//
// Grounded on original_source/python-version/minecraft_server_controller.py
// (MinecraftServerController): the same state graph, the same "pending
// shutdown token" coalescing scheme (there named _recent_activity), guarded
// here by a single mutex instead of threading.Timer closures over
// AtomicInteger. The re-entrant shutdown-check guard follows llama-swap's
// proxy/process.go state-machine style (compare-what-you-expect, bail if it
// no longer holds) translated to this simpler two-counter design.
package backend

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PlayerCounter is the live view onto the dispatcher-owned PlayerCount
// (spec.md §3 Ownership: "dispatcher exclusively owns PlayerCount, exposing
// it to C2 by callback"). The shutdown check always reads through this at
// fire time rather than trusting a value captured when the check was
// scheduled, which is what makes scenario 5 (rejoin cancels shutdown) safe.
type PlayerCounter func() int

// Controller owns BackendStatus, TimeUntilUp and PendingShutdownTokens
// (spec.md §3 Ownership) behind a single mutex. No lock is ever held across
// a call into Control or a time.Sleep/timer wait.
type Controller struct {
	mu     sync.Mutex
	status Status

	timeUntilUp   int
	pendingTokens int

	control             Control
	players             PlayerCounter
	expectedStartupTime int // seconds
	idleShutdownDelay   int // seconds

	countdownStop chan struct{}
	log           *logrus.Entry
}

// New constructs a Controller. expectedStartupTime and idleShutdownDelay are
// seconds (spec.md §6).
func New(control Control, players PlayerCounter, expectedStartupTime, idleShutdownDelay int) *Controller {
	return &Controller{
		status:              Offline,
		timeUntilUp:         expectedStartupTime,
		control:             control,
		players:             players,
		expectedStartupTime: expectedStartupTime,
		idleShutdownDelay:   idleShutdownDelay,
		log:                 logrus.WithField("component", "backend"),
	}
}

// Status is a constant-time query (spec.md §4.1).
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// TimeUntilUp returns seconds until ONLINE if STARTING, else 0.
func (c *Controller) TimeUntilUp() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != Starting {
		return 0
	}
	return c.timeUntilUp
}

// RequestStart is idempotent: only OFFLINE → STARTING does anything.
func (c *Controller) RequestStart() {
	c.mu.Lock()
	if c.status != Offline {
		c.mu.Unlock()
		return
	}
	c.status = Starting
	c.timeUntilUp = c.expectedStartupTime
	if c.countdownStop != nil {
		close(c.countdownStop)
	}
	stop := make(chan struct{})
	c.countdownStop = stop
	c.mu.Unlock()

	c.log.Info("MINECRAFT SERVER IS STARTING!")

	// Start is fire-and-forget (spec.md §4.1 Failure semantics): its error,
	// if any, is logged but never retried automatically.
	if err := c.control.Start(); err != nil {
		c.log.WithError(err).Error("failed to issue backend start command")
	}

	go c.runCountdown(stop)
	time.AfterFunc(time.Duration(c.expectedStartupTime)*time.Second, func() {
		c.transitionToOnline()
	})
}

// runCountdown decrements TimeUntilUp once a second while STARTING,
// satisfying the "observable contract" design note (§9): a single recurring
// ticker rather than the teacher's self-rescheduling timers.
func (c *Controller) runCountdown(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.status != Starting {
				c.mu.Unlock()
				return
			}
			if c.timeUntilUp > 0 {
				c.timeUntilUp--
			}
			c.mu.Unlock()
		}
	}
}

func (c *Controller) transitionToOnline() {
	c.mu.Lock()
	if c.status != Starting {
		// Already forced offline or otherwise moved on; this fired timer is stale.
		c.mu.Unlock()
		return
	}
	c.status = Online
	c.mu.Unlock()

	c.log.Info("MINECRAFT SERVER IS ONLINE!")
	c.scheduleShutdownCheck()
}

// NotifyPlayerJoined is called by the dispatcher when a login session
// starts bridging. It does not by itself affect the shutdown schedule.
func (c *Controller) NotifyPlayerJoined(now int) {
	c.log.WithField("players", now).Info("a player joined the server")
}

// NotifyPlayerLeft is called by the dispatcher when a bridged session ends.
// now is the dispatcher's player count immediately after the decrement,
// used only for logging — the shutdown check re-reads PlayerCount live via
// the PlayerCounter callback at fire time (spec.md §4.1 Rationale).
func (c *Controller) NotifyPlayerLeft(now int) {
	c.log.WithField("players", now).Info("a player left the server")
	c.scheduleShutdownCheck()
}

// scheduleShutdownCheck arms one shutdown check after idleShutdownDelay and
// increments PendingShutdownTokens, maintaining the invariant that the
// token count equals the number of outstanding scheduled checks.
func (c *Controller) scheduleShutdownCheck() {
	c.mu.Lock()
	c.pendingTokens++
	c.mu.Unlock()

	time.AfterFunc(time.Duration(c.idleShutdownDelay)*time.Second, c.runShutdownCheck)
}

// runShutdownCheck implements spec.md §4.1's shutdown check procedure
// exactly: decrement the token count; if another check is still pending,
// or a player is connected, or the backend isn't ONLINE, do nothing.
func (c *Controller) runShutdownCheck() {
	c.mu.Lock()
	c.pendingTokens--
	if c.pendingTokens > 0 {
		c.mu.Unlock()
		return
	}
	if c.players() > 0 {
		c.mu.Unlock()
		return
	}
	if c.status != Online {
		c.mu.Unlock()
		return
	}
	c.status = Offline
	c.timeUntilUp = c.expectedStartupTime
	c.mu.Unlock()

	c.log.Info("MINECRAFT SERVER IS SHUTTING DOWN!")
	if err := c.control.Stop(); err != nil {
		c.log.WithError(err).Error("failed to issue backend stop command")
	}
}

// ForceStop issues the stop command and sets status OFFLINE irrespective of
// token count, used at process exit (spec.md §4.1).
func (c *Controller) ForceStop() {
	c.mu.Lock()
	if c.status == Offline {
		c.mu.Unlock()
		return
	}
	c.status = Offline
	c.timeUntilUp = c.expectedStartupTime
	if c.countdownStop != nil {
		close(c.countdownStop)
		c.countdownStop = nil
	}
	c.mu.Unlock()

	c.log.Warn("MINECRAFT SERVER IS FORCEFULLY SHUTTING DOWN!")
	if err := c.control.Stop(); err != nil {
		c.log.WithError(err).Error("failed to issue backend stop command")
	}
}
