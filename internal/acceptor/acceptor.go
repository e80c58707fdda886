// Package acceptor implements the front door described in spec.md
// §4.5: listen on the public address, read each connection's HANDSHAKE
// packet, and route it to the status front-end or the login dispatcher
// based on the declared next_state.
package acceptor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/lazymc-go/lazymc/internal/client"
	"github.com/lazymc-go/lazymc/internal/config"
	"github.com/lazymc-go/lazymc/internal/login"
	"github.com/lazymc-go/lazymc/internal/proto"
	"github.com/lazymc-go/lazymc/internal/proto/packet"
	"github.com/lazymc-go/lazymc/internal/server"
	"github.com/lazymc-go/lazymc/internal/status"
)

const handshakeTimeout = 10 * time.Second

// Run listens on cfg.Public.Address until ctx is canceled, dispatching
// every accepted connection to its own goroutine.
func Run(ctx context.Context, log *zap.Logger, cfg config.Config, ctrl *server.Controller) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", cfg.Public.Address)
	if err != nil {
		return fmt.Errorf("acceptor: listen %s: %w", cfg.Public.Address, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Info("listening", zap.String("address", cfg.Public.Address))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn("accept error", zap.Error(err))
			continue
		}
		go handle(log, conn, cfg, ctrl)
	}
}

// handle reads a single HANDSHAKE packet off conn and routes the
// connection to the status or login front-end. Any error before or
// during the handshake simply closes the connection, matching typical
// Minecraft proxy behavior toward malformed clients.
func handle(log *zap.Logger, conn net.Conn, cfg config.Config, ctrl *server.Controller) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic handling connection", zap.Any("recover", r), zap.Stringer("remote", conn.RemoteAddr()))
			conn.Close()
		}
	}()

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	r := bufio.NewReader(conn)
	cc := client.New(conn.RemoteAddr())

	pkt, handshakeFrame, err := proto.ReadPacket(r, cc.Compression())
	if err != nil {
		conn.Close()
		return
	}

	pr := proto.NewReader(pkt.Data)
	protocolVersion := pr.VarInt()
	_ = pr.String() // server_address, only used for SRV-style virtual hosting, not needed here
	_ = pr.Short()   // server_port
	nextStateID := pr.VarInt()
	if err := pr.Err(); err != nil {
		conn.Close()
		return
	}

	nextState, ok := proto.NextStateFromID(nextStateID)
	if !ok {
		conn.Close()
		return
	}

	cc.Protocol = packet.Protocol(protocolVersion)
	cc.SetState(nextState)
	conn.SetReadDeadline(time.Time{})

	switch nextState {
	case proto.StateStatus:
		if err := status.Serve(conn, r, cc, cfg, ctrl); err != nil {
			log.Debug("status conversation ended", zap.Error(err))
		}
		conn.Close()

	case proto.StateLogin:
		if err := login.Dispatch(log, conn, r, cc, cfg, ctrl, handshakeFrame); err != nil {
			log.Debug("login conversation ended", zap.Error(err))
		}
		conn.Close()

	default:
		conn.Close()
	}
}
