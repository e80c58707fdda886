// Command lazymc runs the sleep proxy: it listens on the public
// address, answers status/login traffic while the backend is asleep,
// and supervises starting, probing, monitoring, and watching it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/lazymc-go/lazymc/internal/acceptor"
	"github.com/lazymc-go/lazymc/internal/config"
	"github.com/lazymc-go/lazymc/internal/mc"
	"github.com/lazymc-go/lazymc/internal/monitor"
	"github.com/lazymc-go/lazymc/internal/probe"
	"github.com/lazymc-go/lazymc/internal/server"
	"github.com/lazymc-go/lazymc/internal/watch"
)

func main() {
	configPath := flag.String("config", "lazymc.yml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lazymc:", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.Advanced.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lazymc: init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, cfg); err != nil {
		log.Fatal("exiting", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	return zcfg.Build()
}

func run(log *zap.Logger, cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := server.New(cfg, log)

	if favicon, err := mc.LoadFavicon(cfg.Public.Favicon); err != nil {
		log.Warn("failed to load favicon", zap.Error(err))
	} else {
		ctrl.SetDefaultFavicon(favicon)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go handleSignals(log, sig, ctrl, cancel)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		supervise(gctx, log, "acceptor", func(c context.Context) error {
			return acceptor.Run(c, log, cfg, ctrl)
		})
		return nil
	})

	g.Go(func() error {
		supervise(gctx, log, "monitor", func(c context.Context) error {
			return monitor.Run(c, log, cfg, ctrl)
		})
		return nil
	})

	g.Go(func() error {
		supervise(gctx, log, "watch", func(c context.Context) error {
			return watch.Run(c, log, cfg, ctrl)
		})
		return nil
	})

	if cfg.Server.ProbeOnStart {
		g.Go(func() error {
			if err := probe.Run(gctx, log, cfg, ctrl); err != nil {
				log.Warn("startup probe failed", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		return runStdin(gctx, log, ctrl, cancel)
	})

	return g.Wait()
}

// supervise runs fn in a loop, restarting it on any error other than
// context cancellation. A crash loop in one service never brings the
// rest of the process down with it.
func supervise(ctx context.Context, log *zap.Logger, name string, fn func(context.Context) error) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := fn(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error("service crashed, restarting", zap.String("service", name), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}
}

// handleSignals implements the standard double-Ctrl+C behavior: the
// first signal asks the backend to stop gracefully and begins
// shutdown; a second signal force-kills it immediately.
func handleSignals(log *zap.Logger, sig <-chan os.Signal, ctrl *server.Controller, cancel context.CancelFunc) {
	s := <-sig
	log.Info("received signal, shutting down", zap.String("signal", s.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Shutdown(shutdownCtx); err != nil {
			log.Warn("failed to shut down server cleanly", zap.Error(err))
		}
	}()

	select {
	case <-done:
	case s2 := <-sig:
		log.Warn("received second signal, force killing", zap.String("signal", s2.String()))
		if err := ctrl.ForceKill(); err != nil {
			log.Warn("failed to force kill server", zap.Error(err))
		}
	}

	cancel()
}

// runStdin implements a small operator console: "!start"/"!stop" drive
// the backend directly, "!quit"/"!exit" trigger shutdown, anything else
// is ignored. Returns when ctx is canceled or stdin closes.
func runStdin(ctx context.Context, log *zap.Logger, ctrl *server.Controller, cancel context.CancelFunc) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "!start":
				if err := ctrl.Start(""); err != nil {
					log.Warn("manual start failed", zap.Error(err))
				}
			case "!stop":
				if err := ctrl.Stop(); err != nil {
					log.Warn("manual stop failed", zap.Error(err))
				}
			case "!quit", "!exit":
				cancel()
				return nil
			}
		}
	}
}
