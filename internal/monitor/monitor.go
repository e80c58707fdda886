// Package monitor implements the periodic backend health poll described
// in spec.md §4.4: a status request every couple seconds, a ping
// fallback while the server claims to be up, and the should_sleep /
// should_kill follow-through.
package monitor

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/lazymc-go/lazymc/internal/config"
	"github.com/lazymc-go/lazymc/internal/lifecycle"
	"github.com/lazymc-go/lazymc/internal/mc"
	"github.com/lazymc-go/lazymc/internal/proto"
	"github.com/lazymc-go/lazymc/internal/server"
)

const (
	pollInterval  = 2 * time.Second
	statusTimeout = 20 * time.Second
	pingTimeout   = 10 * time.Second
)

// Run polls the backend server forever until ctx is canceled, feeding
// every result into ctrl.UpdateStatus and following up with sleep/kill
// actions.
func Run(ctx context.Context, log *zap.Logger, cfg config.Config, ctrl *server.Controller) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, pingOK := poll(ctx, cfg, ctrl)
		switch {
		case status != nil:
			ctrl.UpdateStatus(status)
		case pingOK:
			log.Warn("failed to poll server status, ping fallback succeeded")
		default:
			ctrl.UpdateStatus(nil)
		}

		if ctrl.ShouldSleep() {
			log.Info("server has been idle, sleeping")
			if err := ctrl.Stop(); err != nil {
				log.Warn("failed to stop idle server", zap.Error(err))
			}
		}

		if ctrl.ShouldKill() {
			log.Error("force killing server, took too long to start or stop")
			if err := ctrl.ForceKill(); err != nil {
				log.Warn("failed to force kill server", zap.Error(err))
			}
		}
	}
}

// poll fetches a fresh status; if that fails and the controller thinks
// the server is Started, it falls back to a raw ping to confirm
// liveness without a fresh status. Returns (status, pingSucceeded).
func poll(ctx context.Context, cfg config.Config, ctrl *server.Controller) (*server.StatusSnapshot, bool) {
	status, err := fetchStatus(ctx, cfg)
	if err == nil {
		return status, false
	}

	if ctrl.State() == server.Started {
		if pingErr := doPing(ctx, cfg); pingErr == nil {
			return nil, true
		}
	}
	return nil, false
}

func dial(ctx context.Context, cfg config.Config) (net.Conn, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", cfg.Server.Address)
	if err != nil {
		return nil, &lifecycle.NetworkError{Err: fmt.Errorf("monitor: dial: %w", err)}
	}
	if cfg.Server.SendProxyV2 {
		if err := mc.WriteLocalProxyV2Header(conn); err != nil {
			conn.Close()
			return nil, &lifecycle.NetworkError{Err: fmt.Errorf("monitor: write proxy header: %w", err)}
		}
	}
	return conn, nil
}

func sendHandshake(conn net.Conn, cfg config.Config, nextState int32) error {
	host, port := splitHostPort(cfg.Server.Address)
	b := proto.NewBuilder()
	b.VarInt(cfg.Public.Protocol)
	b.String(host)
	b.RawBytes([]byte{byte(port >> 8), byte(port)})
	b.VarInt(nextState)
	frame, err := proto.EncodeRawPacket(proto.RawPacket{ID: 0x00, Data: b.Bytes()}, proto.ClientCompression{Threshold: -1})
	if err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 25565
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return host, port
}

func fetchStatus(ctx context.Context, cfg config.Config) (*server.StatusSnapshot, error) {
	deadline := time.Now().Add(statusTimeout)
	dctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, err := dial(dctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	conn.SetDeadline(deadline)

	if err := sendHandshake(conn, cfg, 1); err != nil {
		return nil, fmt.Errorf("monitor: send handshake: %w", err)
	}

	reqFrame, err := proto.EncodeRawPacket(proto.RawPacket{ID: 0x00}, proto.ClientCompression{Threshold: -1})
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(reqFrame); err != nil {
		return nil, fmt.Errorf("monitor: send status request: %w", err)
	}

	r := bufio.NewReader(conn)
	pkt, _, err := proto.ReadPacket(r, proto.ClientCompression{Threshold: -1})
	if err != nil {
		return nil, fmt.Errorf("monitor: read status response: %w", err)
	}

	return decodeStatusResponse(pkt)
}

func decodeStatusResponse(pkt proto.RawPacket) (*server.StatusSnapshot, error) {
	pr := proto.NewReader(pkt.Data)
	jsonStr := pr.String()
	if err := pr.Err(); err != nil {
		return nil, fmt.Errorf("monitor: decode status json: %w", err)
	}
	return parseStatusJSON(jsonStr)
}

func doPing(ctx context.Context, cfg config.Config) error {
	deadline := time.Now().Add(pingTimeout)
	dctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, err := dial(dctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetDeadline(deadline)

	if err := sendHandshake(conn, cfg, 1); err != nil {
		return err
	}

	var tokenBytes [8]byte
	if _, err := rand.Read(tokenBytes[:]); err != nil {
		return err
	}
	token := int64(binary.BigEndian.Uint64(tokenBytes[:]))

	b := proto.NewBuilder()
	b.Long(token)
	frame, err := proto.EncodeRawPacket(proto.RawPacket{ID: 0x01, Data: b.Bytes()}, proto.ClientCompression{Threshold: -1})
	if err != nil {
		return err
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("monitor: send ping: %w", err)
	}

	r := bufio.NewReader(conn)
	pkt, _, err := proto.ReadPacket(r, proto.ClientCompression{Threshold: -1})
	if err != nil {
		return fmt.Errorf("monitor: read pong: %w", err)
	}
	pr := proto.NewReader(pkt.Data)
	got := pr.Long()
	if err := pr.Err(); err != nil {
		return err
	}
	if got != token {
		return fmt.Errorf("monitor: ping token mismatch")
	}
	return nil
}
