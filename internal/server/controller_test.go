package server

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lazymc-go/lazymc/internal/config"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	cfg := config.Default()
	cfg.Time.SleepAfterSecs = 1
	cfg.Time.MinOnlineTimeSecs = 0
	return New(cfg, zap.NewNop())
}

func TestNewControllerStartsStopped(t *testing.T) {
	c := newTestController(t)
	if c.State() != Stopped {
		t.Errorf("initial state = %v, want Stopped", c.State())
	}
}

func TestUpdateStateFromIsCAS(t *testing.T) {
	c := newTestController(t)

	if c.UpdateStateFrom(Started, Starting) {
		t.Error("UpdateStateFrom should fail when current state doesn't match from")
	}
	if c.State() != Stopped {
		t.Errorf("state changed after a failed CAS: %v", c.State())
	}

	if !c.UpdateStateFrom(Stopped, Starting) {
		t.Error("UpdateStateFrom should succeed when current state matches from")
	}
	if c.State() != Starting {
		t.Errorf("state = %v, want Starting", c.State())
	}
}

func TestStartingToStartedSetsKeepOnlineAndLastActive(t *testing.T) {
	c := newTestController(t)
	c.cfg.Time.MinOnlineTimeSecs = 30

	c.UpdateStateFrom(Stopped, Starting)
	c.UpdateStateFrom(Starting, Started)

	c.activeMu.RLock()
	defer c.activeMu.RUnlock()
	if !c.hasLastActive {
		t.Error("lastActive was not set on Starting->Started")
	}
	if !c.hasKeepUntil {
		t.Error("keepOnlineUntil was not set on Starting->Started")
	}
	if !c.keepOnlineUntil.After(time.Now()) {
		t.Error("keepOnlineUntil should be in the future immediately after transition")
	}
}

func TestWatchBroadcastsOnTransition(t *testing.T) {
	c := newTestController(t)
	ch := c.Watch()

	c.UpdateStateFrom(Stopped, Starting)

	select {
	case <-ch:
	default:
		t.Error("Watch channel was not closed after a state transition")
	}
}

func TestUpdateStatusPromotesStoppedToStarted(t *testing.T) {
	c := newTestController(t)
	c.UpdateStatus(&StatusSnapshot{VersionName: "1.21.1", PlayersOnline: 0})
	if c.State() != Started {
		t.Errorf("state = %v, want Started after receiving a status while Stopped", c.State())
	}
}

func TestUpdateStatusDemotesStartedToStoppedOnLoss(t *testing.T) {
	c := newTestController(t)
	c.UpdateStatus(&StatusSnapshot{VersionName: "1.21.1"})
	if c.State() != Started {
		t.Fatalf("precondition: state = %v, want Started", c.State())
	}

	c.UpdateStatus(nil)
	if c.State() != Stopped {
		t.Errorf("state = %v, want Stopped after losing status while Started", c.State())
	}
}

func TestShouldSleepFalseWhilePlayersOnline(t *testing.T) {
	c := newTestController(t)
	c.UpdateStatus(&StatusSnapshot{PlayersOnline: 1})
	if c.ShouldSleep() {
		t.Error("ShouldSleep = true with a player online")
	}
}

func TestShouldSleepFalseBeforeIdleWindow(t *testing.T) {
	c := newTestController(t)
	c.cfg.Time.SleepAfterSecs = 3600
	c.UpdateStatus(&StatusSnapshot{PlayersOnline: 0})
	if c.ShouldSleep() {
		t.Error("ShouldSleep = true immediately after becoming idle with a long sleep_after")
	}
}

func TestShouldSleepTrueAfterIdleWindow(t *testing.T) {
	c := newTestController(t)
	c.UpdateStatus(&StatusSnapshot{PlayersOnline: 0})

	c.activeMu.Lock()
	c.lastActive = time.Now().Add(-2 * time.Second)
	c.activeMu.Unlock()

	if !c.ShouldSleep() {
		t.Error("ShouldSleep = false after the idle window elapsed")
	}
}

func TestShouldSleepFalseDuringKeepOnlineGrace(t *testing.T) {
	c := newTestController(t)
	c.cfg.Time.MinOnlineTimeSecs = 3600
	c.UpdateStateFrom(Stopped, Starting)
	c.UpdateStateFrom(Starting, Started)

	c.activeMu.Lock()
	c.lastActive = time.Now().Add(-10 * time.Second)
	c.activeMu.Unlock()

	if c.ShouldSleep() {
		t.Error("ShouldSleep = true during the post-start keep-online grace period")
	}
}

func TestShouldKillAfterStuckStarting(t *testing.T) {
	c := newTestController(t)
	c.UpdateStateFrom(Stopped, Starting)

	c.stateMu.Lock()
	c.stateSince = time.Now().Add(-(maxStartingDuration + time.Second))
	c.stateMu.Unlock()

	if !c.ShouldKill() {
		t.Error("ShouldKill = false after exceeding maxStartingDuration")
	}
}

func TestShouldKillFalseWhenStopped(t *testing.T) {
	c := newTestController(t)
	if c.ShouldKill() {
		t.Error("ShouldKill = true for a Stopped server")
	}
}

func TestDefaultFaviconRoundTrip(t *testing.T) {
	c := newTestController(t)
	if c.DefaultFavicon() != "" {
		t.Error("DefaultFavicon should start empty")
	}
	c.SetDefaultFavicon("data:image/png;base64,abc")
	if c.DefaultFavicon() != "data:image/png;base64,abc" {
		t.Errorf("DefaultFavicon() = %q", c.DefaultFavicon())
	}
}

func TestIsBannedIPNilSafeByDefault(t *testing.T) {
	c := newTestController(t)
	if c.IsBannedIP("1.2.3.4") {
		t.Error("a fresh controller with no ban list loaded should not ban anyone")
	}
}

func TestIsWhitelistedNilSafeByDefault(t *testing.T) {
	c := newTestController(t)
	if !c.IsWhitelisted("anyone") {
		t.Error("a fresh controller with no whitelist loaded should allow everyone")
	}
}
