package server

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/lazymc-go/lazymc/internal/config"
	"github.com/lazymc-go/lazymc/internal/lifecycle"
	"github.com/lazymc-go/lazymc/internal/mc"
	"github.com/lazymc-go/lazymc/internal/osutil"
)

// Safety-net limits for should_kill: if the server is stuck starting or
// stopping for longer than these, the monitor force-kills it rather
// than wait forever.
const (
	maxStartingDuration = 5 * time.Minute
	maxStoppingDuration = 2 * time.Minute
)

// Controller is the per-backend shared mutable state described in
// spec.md §3 and §9: every field is guarded independently so readers
// stay fast and writers never hold a lock across a blocking call. It
// takes no package-level state, so a process can own more than one
// (the Router seam noted in SPEC_FULL.md §4.14).
type Controller struct {
	cfg config.Config
	log *zap.Logger

	stateMu     sync.RWMutex
	state       State
	stateSince  time.Time
	stateWaitMu sync.Mutex
	stateWaitCh chan struct{}

	pidMu  sync.RWMutex
	pid    int
	hasPID bool
	cmd    *exec.Cmd

	statusMu        sync.RWMutex
	status          *StatusSnapshot
	defaultFavicon  string

	activeMu        sync.RWMutex
	lastActive      time.Time
	hasLastActive   bool
	keepOnlineUntil time.Time
	hasKeepUntil    bool

	joinMu        sync.RWMutex
	probedJoin    *JoinGameData
	forgePayload  []byte

	banMu   sync.RWMutex
	bannedIPs *mc.BanList

	whitelistMu sync.RWMutex
	whitelist   *mc.Whitelist

	rcon mc.RconClient
}

// New builds a Controller in the Stopped state for the given config.
// The RCON client is always mc.NoopRconClient, whatever rcon.enabled
// says (it defaults to false, and the Source RCON wire protocol is out
// of scope, see DESIGN.md), so Stop() always falls through to a process
// signal.
func New(cfg config.Config, log *zap.Logger) *Controller {
	return &Controller{
		cfg:         cfg,
		log:         log,
		state:       Stopped,
		stateSince:  time.Now(),
		stateWaitCh: make(chan struct{}),
		rcon:        mc.NoopRconClient{},
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Watch returns a channel that is closed the next time the state
// changes, so callers (held/lobby clients) can wake together on a
// single broadcast rather than polling.
func (c *Controller) Watch() <-chan struct{} {
	c.stateWaitMu.Lock()
	defer c.stateWaitMu.Unlock()
	return c.stateWaitCh
}

func (c *Controller) broadcastLocked() {
	c.stateWaitMu.Lock()
	close(c.stateWaitCh)
	c.stateWaitCh = make(chan struct{})
	c.stateWaitMu.Unlock()
}

// UpdateState unconditionally moves to "to" if it differs from the
// current state, applying the same Starting→Started side effects as
// UpdateStateFrom.
func (c *Controller) UpdateState(to State) {
	c.stateMu.Lock()
	from := c.state
	if from == to {
		c.stateMu.Unlock()
		return
	}
	c.applyTransitionLocked(from, to)
	c.stateMu.Unlock()
	c.broadcastLocked()
}

// UpdateStateFrom applies a CAS-style transition: it only takes effect
// if the current state equals from and to differs from from. Returns
// whether the transition was applied, so concurrent actors (monitor,
// probe, a joining client) never stomp on each other's updates.
func (c *Controller) UpdateStateFrom(from, to State) bool {
	c.stateMu.Lock()
	if c.state != from || from == to {
		c.stateMu.Unlock()
		return false
	}
	c.applyTransitionLocked(from, to)
	c.stateMu.Unlock()
	c.broadcastLocked()
	return true
}

// applyTransitionLocked assumes stateMu is held for writing.
func (c *Controller) applyTransitionLocked(from, to State) {
	if !canTransition(from, to) {
		c.log.Debug("unusual state transition", zap.String("from", from.String()), zap.String("to", to.String()))
	}

	c.state = to
	c.stateSince = time.Now()

	if to == Started {
		now := time.Now()
		c.activeMu.Lock()
		c.lastActive = now
		c.hasLastActive = true
		if from == Starting && c.cfg.Time.MinOnlineTimeSecs > 0 {
			c.keepOnlineUntil = now.Add(time.Duration(c.cfg.Time.MinOnlineTimeSecs) * time.Second)
			c.hasKeepUntil = true
		}
		c.activeMu.Unlock()
	}

	c.log.Info("server state changed", zap.String("from", from.String()), zap.String("to", to.String()))
}

// UpdateStatus feeds a monitor poll result into the controller: a nil
// status and a Stopped|Starting state is ignored (monitor just hasn't
// connected yet); a status while Stopped|Starting promotes to Started;
// losing the status while Started demotes to Stopped. Any status
// report with online players bumps last_active regardless of the
// resulting transition.
func (c *Controller) UpdateStatus(status *StatusSnapshot) {
	cur := c.State()

	switch {
	case status != nil && (cur == Stopped || cur == Starting):
		c.UpdateStateFrom(cur, Started)
	case status == nil && cur == Started:
		c.UpdateStateFrom(cur, Stopped)
	}

	if status != nil {
		c.statusMu.Lock()
		c.status = status
		c.statusMu.Unlock()
	}

	if status != nil && status.PlayersOnline > 0 {
		c.activeMu.Lock()
		c.lastActive = time.Now()
		c.hasLastActive = true
		c.activeMu.Unlock()
	}
}

// CloneStatus returns a copy of the most recently cached status, or nil
// if none has been observed yet.
func (c *Controller) CloneStatus() *StatusSnapshot {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	if c.status == nil {
		return nil
	}
	cp := *c.status
	return &cp
}

// SetDefaultFavicon stores the favicon to report while the backend has
// never reported one of its own, loaded once at startup from
// public.favicon.
func (c *Controller) SetDefaultFavicon(favicon string) {
	c.statusMu.Lock()
	c.defaultFavicon = favicon
	c.statusMu.Unlock()
}

// DefaultFavicon returns the startup-configured favicon fallback.
func (c *Controller) DefaultFavicon() string {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.defaultFavicon
}

// ShouldSleep reports whether the server is idle long enough to stop:
// Started, no online players, past its post-start keep-online grace
// period, and idle for at least time.sleep_after.
func (c *Controller) ShouldSleep() bool {
	if c.State() != Started {
		return false
	}

	c.statusMu.RLock()
	online := c.status != nil && c.status.PlayersOnline > 0
	c.statusMu.RUnlock()
	if online {
		return false
	}

	now := time.Now()

	c.activeMu.RLock()
	defer c.activeMu.RUnlock()
	if c.hasKeepUntil && now.Before(c.keepOnlineUntil) {
		return false
	}
	if !c.hasLastActive {
		return false
	}
	idle := now.Sub(c.lastActive)
	return idle >= time.Duration(c.cfg.Time.SleepAfterSecs)*time.Second
}

// ShouldKill reports whether the server has been stuck in Starting or
// Stopping longer than the safety-net limits, meaning it should be
// force-killed rather than waited on further.
func (c *Controller) ShouldKill() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	switch c.state {
	case Starting:
		return time.Since(c.stateSince) > maxStartingDuration
	case Stopping:
		return time.Since(c.stateSince) > maxStoppingDuration
	default:
		return false
	}
}

// Start spawns the backing server process if currently Stopped. The
// optional usernameHint is only used for the log line, matching the
// original's "Starting server for '%s'..." message.
func (c *Controller) Start(usernameHint string) error {
	if !c.UpdateStateFrom(Stopped, Starting) {
		return nil
	}

	if usernameHint != "" {
		c.log.Info("starting server", zap.String("for_user", usernameHint))
	} else {
		c.log.Info("starting server")
	}

	if c.cfg.Advanced.RewriteServerProperties {
		c.rewriteServerProperties()
	}

	parts, err := shlex.Split(c.cfg.Server.Command)
	if err != nil || len(parts) == 0 {
		c.UpdateState(Stopped)
		return &lifecycle.LifecycleError{Err: fmt.Errorf("parse command %q: %w", c.cfg.Server.Command, err)}
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Dir = c.cfg.Server.Directory
	if err := cmd.Start(); err != nil {
		c.UpdateState(Stopped)
		return &lifecycle.LifecycleError{Err: fmt.Errorf("spawn: %w", err)}
	}

	c.pidMu.Lock()
	c.pid = cmd.Process.Pid
	c.hasPID = true
	c.cmd = cmd
	c.pidMu.Unlock()

	go c.awaitExit(cmd)

	return nil
}

// rewriteServerProperties patches server-ip/server-port in the backend's
// server.properties to match server.address, so the backend binds where
// this proxy expects to find it regardless of what's checked into the
// server directory. Failures are logged, not fatal: the backend may
// already be configured correctly.
func (c *Controller) rewriteServerProperties() {
	path := filepath.Join(c.cfg.Server.Directory, "server.properties")
	sp, err := mc.LoadServerProperties(path)
	if err != nil {
		c.log.Warn("failed to load server.properties for rewrite", zap.Error(err))
		return
	}

	host, port, err := net.SplitHostPort(c.cfg.Server.Address)
	if err != nil {
		c.log.Warn("failed to parse server.address for rewrite", zap.Error(err))
		return
	}

	patch := map[string]string{"server-ip": host, "server-port": port}
	if err := mc.RewritePatch(path, sp, patch); err != nil {
		c.log.Warn("failed to rewrite server.properties", zap.Error(err))
	}
}

// awaitExit waits for the child process and returns the controller to
// Stopped once it has, regardless of how the exit was triggered.
func (c *Controller) awaitExit(cmd *exec.Cmd) {
	err := cmd.Wait()
	if err != nil {
		c.log.Warn("server process exited with error", zap.Error(err))
	} else {
		c.log.Info("server process exited")
	}

	c.pidMu.Lock()
	c.hasPID = false
	c.pid = 0
	c.cmd = nil
	c.pidMu.Unlock()

	c.UpdateState(Stopped)
}

// Stop asks a Started server to shut down gracefully, moving it to
// Stopping. No-op if a child isn't running.
func (c *Controller) Stop() error {
	pid, ok := c.PID()
	if !ok {
		return nil
	}

	if !c.UpdateStateFrom(Started, Stopping) {
		return nil
	}

	rconCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.rcon.Stop(rconCtx); err != nil {
		c.log.Debug("rcon stop unavailable, falling back to process signal", zap.Error(err))
		return osutil.GracefullyStop(c.log, pid)
	}
	return nil
}

// ForceKill sends a hard kill signal to the child process regardless of
// state, for use by should_kill and by a second Ctrl+C.
func (c *Controller) ForceKill() error {
	pid, ok := c.PID()
	if !ok {
		return nil
	}
	c.UpdateState(Stopping)
	return osutil.ForceKill(c.log, pid)
}

// PID returns the backing process id, if one is currently running.
func (c *Controller) PID() (int, bool) {
	c.pidMu.RLock()
	defer c.pidMu.RUnlock()
	return c.pid, c.hasPID
}

// SetProbedJoinGame stores the JOIN_GAME fields captured by a probe, so
// the lobby occupation method can forge a credible RESPAWN later.
func (c *Controller) SetProbedJoinGame(jg *JoinGameData) {
	c.joinMu.Lock()
	c.probedJoin = jg
	c.joinMu.Unlock()
}

// ProbedJoinGame returns the last captured JOIN_GAME data, if any.
func (c *Controller) ProbedJoinGame() *JoinGameData {
	c.joinMu.RLock()
	defer c.joinMu.RUnlock()
	return c.probedJoin
}

// SetForgePayload stores the raw fml:loginwrapper bytes captured during
// a probe. The lobby handoff does not replay these bytes; it answers
// the real server's Forge requests with forge.BuildReply instead.
func (c *Controller) SetForgePayload(payload []byte) {
	c.joinMu.Lock()
	c.forgePayload = append([]byte(nil), payload...)
	c.joinMu.Unlock()
}

// ForgePayload returns a copy of the captured Forge handshake payload.
func (c *Controller) ForgePayload() []byte {
	c.joinMu.RLock()
	defer c.joinMu.RUnlock()
	return append([]byte(nil), c.forgePayload...)
}

// IsBannedIP reports whether ip is in the cached ban set.
func (c *Controller) IsBannedIP(ip string) bool {
	c.banMu.RLock()
	defer c.banMu.RUnlock()
	return c.bannedIPs.Contains(ip)
}

// SetBannedIPs replaces the cached ban set wholesale, used by the
// file-watch feed when banned-ips.json changes.
func (c *Controller) SetBannedIPs(bans *mc.BanList) {
	c.banMu.Lock()
	c.bannedIPs = bans
	c.banMu.Unlock()
}

// IsWhitelisted reports whether username may bypass a sleeping server
// per server.wake_whitelist. Always true if no whitelist is loaded.
func (c *Controller) IsWhitelisted(username string) bool {
	c.whitelistMu.RLock()
	defer c.whitelistMu.RUnlock()
	if c.whitelist == nil {
		return true
	}
	return c.whitelist.IsWhitelisted(username)
}

// SetWhitelist replaces the cached whitelist, used by the file-watch
// feed when whitelist.json or ops.json changes.
func (c *Controller) SetWhitelist(wl *mc.Whitelist) {
	c.whitelistMu.Lock()
	c.whitelist = wl
	c.whitelistMu.Unlock()
}

// Config returns the configuration this controller was built with.
func (c *Controller) Config() config.Config { return c.cfg }

// Shutdown stops the backing process if one is running, for use during
// process exit: it asks for a graceful stop, then force-kills the
// process if it has not exited by the time ctx is done.
func (c *Controller) Shutdown(ctx context.Context) error {
	pid, ok := c.PID()
	if !ok {
		return nil
	}
	done := make(chan struct{})
	go func() {
		c.pidMu.RLock()
		cmd := c.cmd
		c.pidMu.RUnlock()
		if cmd != nil {
			cmd.Wait()
		}
		close(done)
	}()

	if err := osutil.GracefullyStop(c.log, pid); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return osutil.ForceKill(c.log, pid)
	}
}
