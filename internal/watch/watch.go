// Package watch implements the file-watch feed described in
// spec.md §4.10: a debounced fsnotify watcher over the server
// directory that reloads the ban list, whitelist, and server.properties
// caches on the controller when their backing files change.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/lazymc-go/lazymc/internal/config"
	"github.com/lazymc-go/lazymc/internal/mc"
	"github.com/lazymc-go/lazymc/internal/server"
)

const debounce = 2 * time.Second

const (
	bannedIPsFile      = "banned-ips.json"
	whitelistFile      = "whitelist.json"
	opsFile            = "ops.json"
	serverPropertiesFile = "server.properties"
)

// Run watches cfg.Server.Directory for changes to the files lazymc
// caches, reloading the affected cache on ctrl after a debounce
// window. Blocks until ctx is canceled.
func Run(ctx context.Context, log *zap.Logger, cfg config.Config, ctrl *server.Controller) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(cfg.Server.Directory); err != nil {
		return err
	}

	reload(log, cfg, ctrl)

	var timer *time.Timer
	pending := false

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isWatched(ev.Name) {
				continue
			}
			if !pending {
				timer = time.NewTimer(debounce)
				pending = true
			} else {
				timer.Reset(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watch error", zap.Error(err))

		case <-timerC:
			pending = false
			reload(log, cfg, ctrl)
		}
	}
}

func isWatched(name string) bool {
	switch filepath.Base(name) {
	case bannedIPsFile, whitelistFile, opsFile, serverPropertiesFile:
		return true
	default:
		return false
	}
}

func reload(log *zap.Logger, cfg config.Config, ctrl *server.Controller) {
	dir := cfg.Server.Directory

	if bans, err := mc.LoadBanList(filepath.Join(dir, bannedIPsFile), time.Now()); err != nil {
		log.Warn("failed to reload ban list", zap.Error(err))
	} else {
		if bans.Has127001() {
			log.Warn("127.0.0.1 is in the ban list, this will block the proxy's own probe connections")
		}
		ctrl.SetBannedIPs(bans)
	}

	props, err := mc.LoadServerProperties(filepath.Join(dir, serverPropertiesFile))
	if err != nil {
		log.Warn("failed to reload server.properties", zap.Error(err))
		return
	}

	if !props.WhiteListEnabled() {
		ctrl.SetWhitelist(nil)
		return
	}

	wl, err := mc.LoadWhitelist(filepath.Join(dir, whitelistFile), filepath.Join(dir, opsFile))
	if err != nil {
		log.Warn("failed to reload whitelist", zap.Error(err))
		return
	}
	ctrl.SetWhitelist(wl)
}
