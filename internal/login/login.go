// Package login implements the login front-end and join dispatcher
// (spec.md §4.7) plus the Kick/Hold/Forward/Lobby occupation methods
// (spec.md §4.8).
package login

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lazymc-go/lazymc/internal/client"
	"github.com/lazymc-go/lazymc/internal/config"
	"github.com/lazymc-go/lazymc/internal/mc"
	"github.com/lazymc-go/lazymc/internal/proto"
	"github.com/lazymc-go/lazymc/internal/relay"
	"github.com/lazymc-go/lazymc/internal/server"
)

// result is an occupation method's outcome: Consumed means the
// connection has been fully handled (relayed or closed); Continue
// means the dispatcher should try the next configured method.
type result int

const (
	consumed result = iota
	cont
)

// Dispatch handles one client from LOGIN_START onward: ban/whitelist
// policy, waking the server, and iterating join.methods until one
// consumes the connection.
func Dispatch(log *zap.Logger, conn net.Conn, r *bufio.Reader, cc *client.Context, cfg config.Config, ctrl *server.Controller, handshakeFrame []byte) error {
	pkt, loginStartFrame, err := proto.ReadPacket(r, cc.Compression())
	if err != nil {
		return err
	}

	pr := proto.NewReader(pkt.Data)
	username := pr.String()
	if err := pr.Err(); err != nil {
		return fmt.Errorf("login: decode login start: %w", err)
	}

	ip := hostOf(cc.RemoteAddr)

	if cfg.Server.BlockBannedIPs && ctrl.IsBannedIP(ip) {
		return kickNow(conn, cc, "Your IP address is banned from this server.")
	}
	if cfg.Server.DropBannedIPs && ctrl.IsBannedIP(ip) {
		log.Debug("silently dropping banned IP", zap.String("ip", ip))
		return conn.Close()
	}

	whitelisted := ctrl.IsWhitelisted(username)
	if cfg.Server.WakeWhitelist && !whitelisted {
		return kickNow(conn, cc, "You are not whitelisted on this server.")
	}

	state := ctrl.State()
	if (state == server.Stopped || state == server.Starting) && whitelisted {
		if err := ctrl.Start(username); err != nil {
			log.Warn("failed to start server", zap.Error(err))
		}
	}

	queued := append(proto.WrapFrame(handshakeFrame), proto.WrapFrame(loginStartFrame)...)

	if ctrl.State() == server.Started {
		_, err := connectAndHold(log, conn, cfg, queued)
		return err
	}

	for _, m := range cfg.Join.Methods {
		var res result
		var err error

		switch strings.ToLower(m) {
		case "kick":
			res, err = runKick(conn, cc, cfg, ctrl)
		case "hold":
			res, err = runHold(log, conn, cc, cfg, ctrl, queued)
		case "forward":
			res, err = runForward(log, conn, cfg, queued)
		case "lobby":
			res, err = runLobby(log, conn, r, cc, username, cfg, ctrl)
		default:
			log.Warn("unknown join method configured", zap.String("method", m))
			continue
		}

		if err != nil {
			log.Debug("join method errored", zap.String("method", m), zap.Error(err))
		}
		if res == consumed {
			return err
		}
	}

	return conn.Close()
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func kickNow(conn net.Conn, cc *client.Context, message string) error {
	return writeDisconnect(conn, cc, message)
}

func writeDisconnect(conn net.Conn, cc *client.Context, message string) error {
	b := proto.NewBuilder()
	b.String(fmt.Sprintf(`{"text":%q}`, message))
	frame, err := proto.EncodeRawPacket(proto.RawPacket{ID: 0x00, Data: b.Bytes()}, cc.Compression())
	if err != nil {
		return err
	}
	if _, err := conn.Write(frame); err != nil {
		return err
	}
	return conn.Close()
}

func runKick(conn net.Conn, cc *client.Context, cfg config.Config, ctrl *server.Controller) (result, error) {
	var message string
	switch ctrl.State() {
	case server.Starting:
		message = cfg.Join.Kick.Starting
	case server.Stopping:
		message = cfg.Join.Kick.Stopping
	default:
		message = cfg.Messages.LoginStarting
	}
	return consumed, writeDisconnect(conn, cc, message)
}

func runForward(log *zap.Logger, conn net.Conn, cfg config.Config, queued []byte) (result, error) {
	upstream, err := net.DialTimeout("tcp", cfg.Join.Forward.Address, 10*time.Second)
	if err != nil {
		return consumed, fmt.Errorf("login: forward dial: %w", err)
	}

	if cfg.Join.Forward.SendProxyV2 {
		if err := mc.WriteProxyV2Header(upstream, conn.RemoteAddr(), upstream.RemoteAddr()); err != nil {
			upstream.Close()
			return consumed, err
		}
	}

	relay.Pump(log, conn, upstream, nil, queued)
	return consumed, nil
}

func runHold(log *zap.Logger, conn net.Conn, cc *client.Context, cfg config.Config, ctrl *server.Controller, queued []byte) (result, error) {
	if ctrl.State() != server.Starting {
		return cont, nil
	}

	timeout := time.Duration(cfg.Join.Hold.TimeoutSecs) * time.Second
	deadline := time.Now().Add(timeout)

	for {
		switch ctrl.State() {
		case server.Started:
			return connectAndHold(log, conn, cfg, queued)
		case server.Stopping, server.Stopped:
			return cont, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return cont, nil
		}

		select {
		case <-time.After(minDur(remaining, time.Second)):
		case <-ctrl.Watch():
		}
	}
}

func connectAndHold(log *zap.Logger, conn net.Conn, cfg config.Config, queued []byte) (result, error) {
	upstream, err := net.DialTimeout("tcp", cfg.Server.Address, 10*time.Second)
	if err != nil {
		return consumed, fmt.Errorf("login: hold dial: %w", err)
	}
	if cfg.Server.SendProxyV2 {
		if err := mc.WriteProxyV2Header(upstream, conn.RemoteAddr(), upstream.RemoteAddr()); err != nil {
			upstream.Close()
			return consumed, err
		}
	}
	relay.Pump(log, conn, upstream, nil, queued)
	return consumed, nil
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
